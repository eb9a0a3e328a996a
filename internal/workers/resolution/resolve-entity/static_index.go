// internal/workers/resolution/resolve-entity/static_index.go
package resolveentity

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"query-router/internal/models"
)

//go:embed static_index.yaml
var staticIndexYAML []byte

type staticIndexFile struct {
	Securities []struct {
		Code     string `yaml:"ts_code"`
		Symbol   string `yaml:"symbol"`
		Name     string `yaml:"name"`
		Industry string `yaml:"industry"`
		Market   string `yaml:"market"`
	} `yaml:"securities"`
}

// StaticSecurities returns the embedded offline identifier list.
func StaticSecurities() ([]models.Security, error) {
	var f staticIndexFile
	if err := yaml.Unmarshal(staticIndexYAML, &f); err != nil {
		return nil, fmt.Errorf("parse static index: %w", err)
	}
	out := make([]models.Security, 0, len(f.Securities))
	for _, s := range f.Securities {
		out = append(out, models.Security{
			Code:       s.Code,
			Symbol:     s.Symbol,
			Name:       s.Name,
			Industry:   s.Industry,
			Market:     s.Market,
			ListStatus: "L",
		})
	}
	return out, nil
}

// NewStaticResolver builds a resolver over the embedded index and short-name table.
func NewStaticResolver() (*Resolver, error) {
	secs, err := StaticSecurities()
	if err != nil {
		return nil, err
	}
	shortNames, err := LoadShortNames("")
	if err != nil {
		return nil, err
	}
	return NewResolver(NewIndex(secs, shortNames)), nil
}
