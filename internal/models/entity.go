// internal/models/entity.go
package models

type EntityKind string

const (
	EntitySecurity EntityKind = "security"
	EntitySector   EntityKind = "sector"
)

// Span is a rune offset range [Start, End) into the normalized question.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ResolvedEntity is a canonical security (600519.SH) or a sector name.
type ResolvedEntity struct {
	Kind EntityKind `json:"kind"`
	Code string     `json:"code"`
	Name string     `json:"name"`
	Span Span       `json:"span"`
}

// Security is one row of the identifier index.
type Security struct {
	Code       string `json:"ts_code"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Industry   string `json:"industry,omitempty"`
	Market     string `json:"market,omitempty"`
	ListStatus string `json:"list_status,omitempty"`
}

// Suffix returns the market suffix of a canonical code, e.g. "SH".
func (s Security) Suffix() string {
	if len(s.Code) < 3 {
		return ""
	}
	return s.Code[len(s.Code)-2:]
}
