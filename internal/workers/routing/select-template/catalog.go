// internal/workers/routing/select-template/catalog.go
package selecttemplate

import (
	"fmt"
	"regexp"

	"query-router/internal/models"
	"query-router/pkg/registry"
)

type rule struct {
	template *models.Template
	allOf    []*regexp.Regexp
	noneOf   []*regexp.Regexp
}

func (r rule) matches(text string) bool {
	for _, re := range r.allOf {
		if !re.MatchString(text) {
			return false
		}
	}
	for _, re := range r.noneOf {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// Catalog is the ordered (pattern, template) list. It is immutable once built.
type Catalog struct {
	rules  []rule
	byName map[string]*models.Template
}

// NewCatalog compiles every trigger. Registry order becomes match priority.
func NewCatalog(reg *registry.TemplateRegistry) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*models.Template, len(reg.Templates))}
	for _, spec := range reg.Templates {
		r := rule{template: spec.ToTemplate()}
		for _, p := range spec.Triggers.AllOf {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("template %s: trigger %q: %w", spec.Name, p, err)
			}
			r.allOf = append(r.allOf, re)
		}
		for _, p := range spec.Triggers.NoneOf {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("template %s: exclusion %q: %w", spec.Name, p, err)
			}
			r.noneOf = append(r.noneOf, re)
		}
		c.rules = append(c.rules, r)
		c.byName[spec.Name] = r.template
	}
	return c, nil
}

// LoadCatalog builds the catalog from a registry file, or the embedded one.
func LoadCatalog(path string) (*Catalog, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(reg)
}

// Match returns the first template whose triggers hold.
func (c *Catalog) Match(normalized string) (*models.Template, bool) {
	for _, r := range c.rules {
		if r.matches(normalized) {
			return r.template, true
		}
	}
	return nil, false
}

func (c *Catalog) Lookup(name string) (*models.Template, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Templates returns the templates in priority order.
func (c *Catalog) Templates() []*models.Template {
	out := make([]*models.Template, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.template
	}
	return out
}
