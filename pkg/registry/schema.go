// pkg/registry/schema.go
package registry

import "query-router/internal/models"

// TemplateRegistry is the on-disk catalog. Template order is match priority.
type TemplateRegistry struct {
	Version     string         `yaml:"version" json:"version"`
	LastUpdated string         `yaml:"lastUpdated" json:"lastUpdated"`
	Templates   []TemplateSpec `yaml:"templates" json:"templates"`
}

type TemplateSpec struct {
	Name              string            `yaml:"name" json:"name"`
	Description       string            `yaml:"description" json:"description"`
	Executor          string            `yaml:"executor" json:"executor"`
	Triggers          Triggers          `yaml:"triggers" json:"triggers"`
	Required          []string          `yaml:"required" json:"required"`
	Optional          []string          `yaml:"optional" json:"optional"`
	Defaults          map[string]string `yaml:"defaults" json:"defaults"`
	RecentDays        int               `yaml:"recentDays" json:"recentDays"`
	MinEntities       int               `yaml:"minEntities" json:"minEntities"`
	MaxEntities       int               `yaml:"maxEntities" json:"maxEntities"`
	AllowedExclusions []string          `yaml:"allowedExclusions" json:"allowedExclusions"`
}

// Triggers are regular expressions over normalized question text.
// Every AllOf pattern must match and no NoneOf pattern may.
type Triggers struct {
	AllOf  []string `yaml:"allOf" json:"allOf"`
	NoneOf []string `yaml:"noneOf" json:"noneOf"`
}

// ToTemplate converts the file form into the immutable runtime template.
func (s TemplateSpec) ToTemplate() *models.Template {
	t := &models.Template{
		Name:        s.Name,
		Description: s.Description,
		Executor:    models.ExecutorKind(s.Executor),
		RecentDays:  s.RecentDays,
		MinEntities: s.MinEntities,
		MaxEntities: s.MaxEntities,
		Defaults:    make(map[models.ParamKind]models.DefaultPolicy, len(s.Defaults)),
	}
	for _, k := range s.Required {
		t.Required = append(t.Required, models.ParamKind(k))
	}
	for _, k := range s.Optional {
		t.Optional = append(t.Optional, models.ParamKind(k))
	}
	for k, v := range s.Defaults {
		t.Defaults[models.ParamKind(k)] = models.DefaultPolicy(v)
	}
	for _, e := range s.AllowedExclusions {
		t.AllowedExclusions = append(t.AllowedExclusions, models.ExclusionRule(e))
	}
	return t
}
