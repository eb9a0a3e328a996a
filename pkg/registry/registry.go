// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"query-router/internal/common/validation"
)

//go:embed templates.yaml
var defaultRegistry []byte

var registrySchema = validation.MustCompile("template-registry", `{
  "type": "object",
  "required": ["version", "templates"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "templates": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "executor", "triggers"],
        "properties": {
          "name": {"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
          "executor": {"enum": ["postgres", "elasticsearch"]},
          "triggers": {
            "type": "object",
            "required": ["allOf"],
            "properties": {
              "allOf": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
              "noneOf": {"type": "array", "items": {"type": "string", "minLength": 1}}
            }
          },
          "required": {"type": "array", "items": {"$ref": "#/definitions/param"}},
          "optional": {"type": "array", "items": {"$ref": "#/definitions/param"}},
          "defaults": {
            "type": "object",
            "additionalProperties": {"enum": ["latest_date", "latest_report", "policy_limit", "recent_trading_days"]}
          },
          "minEntities": {"type": "integer", "minimum": 0},
          "maxEntities": {"type": "integer", "minimum": 0},
          "allowedExclusions": {
            "type": "array",
            "items": {"enum": ["EXCLUDE_ST", "EXCLUDE_STAR", "EXCLUDE_CHINEXT", "EXCLUDE_BSE"]}
          }
        }
      }
    }
  },
  "definitions": {
    "param": {"enum": ["entity", "entities", "sector", "date", "date_range", "report_period", "limit", "exclusions"]}
  }
}`)

// LoadRegistry reads a registry file; an empty path selects the embedded catalog.
func LoadRegistry(path string) (*TemplateRegistry, error) {
	data := defaultRegistry
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes and checks a registry document.
func Parse(data []byte) (*TemplateRegistry, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse template registry: %w", err)
	}
	res, err := registrySchema.Validate(doc)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, fmt.Errorf("invalid template registry: %s", strings.Join(res.GetErrorMessages(), "; "))
	}

	var reg TemplateRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode template registry: %w", err)
	}
	seen := make(map[string]bool, len(reg.Templates))
	for _, t := range reg.Templates {
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate template %q", t.Name)
		}
		seen[t.Name] = true
		if t.MaxEntities > 0 && t.MinEntities > t.MaxEntities {
			return nil, fmt.Errorf("template %q: minEntities %d > maxEntities %d", t.Name, t.MinEntities, t.MaxEntities)
		}
	}
	return &reg, nil
}

// Names returns template names in priority order.
func (r *TemplateRegistry) Names() []string {
	out := make([]string, len(r.Templates))
	for i, t := range r.Templates {
		out[i] = t.Name
	}
	return out
}
