// internal/workers/resolution/resolve-entity/resolver.go
package resolveentity

import (
	"strings"
	"sync/atomic"

	"query-router/internal/common/errors"
	"query-router/internal/models"
)

// Connectors that separate entities in list or comparison phrasing.
var connectors = []string{"和", "与", "及", "、", ",", "，", "vs", "VS", "Vs"}

// Resolver canonicalizes security identifiers and names against the current snapshot.
// Swap replaces the snapshot atomically; in-flight reads keep the one they loaded.
type Resolver struct {
	index atomic.Pointer[Index]
}

func NewResolver(ix *Index) *Resolver {
	r := &Resolver{}
	if ix == nil {
		ix = NewIndex(nil, nil)
	}
	r.index.Store(ix)
	return r
}

func (r *Resolver) Swap(ix *Index) {
	r.index.Store(ix)
}

func (r *Resolver) Snapshot() *Index {
	return r.index.Load()
}

// Resolve treats text as one token.
func (r *Resolver) Resolve(text string) (models.ResolvedEntity, *errors.StandardError) {
	return r.index.Load().resolve(text)
}

// ResolveMany returns every entity in text in order of first appearance.
// Diagnostic failures (case, length, suffix, short name) are returned at once.
// NOT_FOUND segments are skipped while anything else resolves.
func (r *Resolver) ResolveMany(text string) ([]models.ResolvedEntity, *errors.StandardError) {
	ix := r.index.Load()
	cands := ix.scan(text)

	var (
		out      []models.ResolvedEntity
		seen     = make(map[string]bool)
		notFound *errors.StandardError
	)
	for _, seg := range segments(text, cands) {
		for _, c := range cands {
			if c.span.Start < seg.Start || c.span.End > seg.End {
				continue
			}
			ent, err := ix.resolveCandidate(c)
			if err != nil {
				if err.Code == errors.ErrCodeEntityNotFound {
					if notFound == nil {
						notFound = err
					}
					continue
				}
				return nil, err
			}
			if seen[ent.Code] {
				continue
			}
			seen[ent.Code] = true
			out = append(out, ent)
		}
	}

	if len(out) == 0 {
		if notFound != nil {
			return nil, notFound
		}
		return nil, errors.NewEntityNotFoundError(strings.TrimSpace(text))
	}
	return out, nil
}

// HasIdentifier reports whether text contains something shaped like a security code.
func HasIdentifier(text string) bool {
	if qualifiedScan.MatchString(text) {
		return true
	}
	return len(codeLikeRuns(text)) > 0
}

// segments splits text on connectors that fall outside candidate spans.
func segments(text string, cands []candidate) []models.Span {
	runes := []rune(text)
	inName := make([]bool, len(runes))
	for _, c := range cands {
		for i := c.span.Start; i < c.span.End; i++ {
			inName[i] = true
		}
	}

	var out []models.Span
	start := 0
	for i := 0; i < len(runes); {
		if inName[i] {
			i++
			continue
		}
		n := connectorAt(runes, i)
		if n == 0 {
			i++
			continue
		}
		if i > start {
			out = append(out, models.Span{Start: start, End: i})
		}
		i += n
		start = i
	}
	if start < len(runes) {
		out = append(out, models.Span{Start: start, End: len(runes)})
	}
	return out
}

func connectorAt(runes []rune, i int) int {
	for _, c := range connectors {
		cr := []rune(c)
		if i+len(cr) <= len(runes) && string(runes[i:i+len(cr)]) == c {
			return len(cr)
		}
	}
	return 0
}
