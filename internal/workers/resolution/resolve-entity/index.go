// internal/workers/resolution/resolve-entity/index.go
package resolveentity

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"query-router/internal/common/errors"
	"query-router/internal/models"
)

//go:embed short_names.yaml
var defaultShortNames []byte

var allowedSuffixes = map[string]bool{"SH": true, "SZ": true, "BJ": true}

var (
	qualifiedExact = regexp.MustCompile(`^(\d+)\.([A-Za-z]+)$`)
	digitsExact    = regexp.MustCompile(`^\d+$`)

	qualifiedScan = regexp.MustCompile(`\b(\d{4,8})\.([A-Za-z]{1,4})\b`)
	digitRunScan  = regexp.MustCompile(`\d+`)
)

// Digit runs followed by one of these are quantities, not codes.
const quantityUnits = "年月日号天周个只名家元%倍股手万亿点"

type candidateKind int

const (
	candQualified candidateKind = iota
	candDigits
	candName
	candShortName
	candSector
)

type candidate struct {
	kind candidateKind
	text string
	span models.Span
}

type nameEntry struct {
	text  string
	runes []rune
	kind  candidateKind
}

// Index is an immutable identifier snapshot. Readers never lock it.
type Index struct {
	byCode     map[string]models.Security
	byBare     map[string]models.Security
	byName     map[string]models.Security
	sectors    map[string]bool
	shortNames map[string]string
	byFirst    map[rune][]nameEntry
	size       int
	LoadedAt   time.Time
}

// NewIndex builds a snapshot. Sectors are derived from the industry column.
func NewIndex(securities []models.Security, shortNames map[string]string) *Index {
	ix := &Index{
		byCode:     make(map[string]models.Security, len(securities)),
		byBare:     make(map[string]models.Security, len(securities)),
		byName:     make(map[string]models.Security, len(securities)),
		sectors:    make(map[string]bool),
		shortNames: make(map[string]string, len(shortNames)),
		byFirst:    make(map[rune][]nameEntry),
		size:       len(securities),
		LoadedAt:   time.Now(),
	}
	for _, s := range securities {
		ix.byCode[s.Code] = s
		if bare, _, ok := strings.Cut(s.Code, "."); ok {
			ix.byBare[bare] = s
		}
		if s.Name != "" {
			ix.byName[s.Name] = s
			ix.addName(s.Name, candName)
		}
		if s.Industry != "" && !ix.sectors[s.Industry] {
			ix.sectors[s.Industry] = true
		}
	}
	for sector := range ix.sectors {
		if _, isName := ix.byName[sector]; !isName {
			ix.addName(sector, candSector)
		}
	}
	for short, full := range shortNames {
		if _, isName := ix.byName[short]; isName {
			continue
		}
		ix.shortNames[short] = full
		ix.addName(short, candShortName)
	}
	for r := range ix.byFirst {
		entries := ix.byFirst[r]
		sort.SliceStable(entries, func(i, j int) bool { return len(entries[i].runes) > len(entries[j].runes) })
	}
	return ix
}

func (ix *Index) addName(name string, kind candidateKind) {
	runes := []rune(name)
	ix.byFirst[runes[0]] = append(ix.byFirst[runes[0]], nameEntry{text: name, runes: runes, kind: kind})
}

// Size returns the number of securities in the snapshot.
func (ix *Index) Size() int { return ix.size }

// IsSector reports whether name is a known sector.
func (ix *Index) IsSector(name string) bool { return ix.sectors[name] }

// Sectors returns known sector names, sorted.
func (ix *Index) Sectors() []string {
	out := make([]string, 0, len(ix.sectors))
	for s := range ix.sectors {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// LoadShortNames reads the short-name policy table; an empty path selects the embedded one.
func LoadShortNames(path string) (map[string]string, error) {
	raw := defaultShortNames
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read short names %s: %w", path, err)
		}
		raw = b
	}
	var f shortNameFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse short names: %w", err)
	}
	return f.ShortNames, nil
}

// resolve canonicalizes a single token.
func (ix *Index) resolve(text string) (models.ResolvedEntity, *errors.StandardError) {
	text = strings.TrimSpace(text)
	span := models.Span{Start: 0, End: utf8.RuneCountInString(text)}

	if m := qualifiedExact.FindStringSubmatch(text); m != nil {
		return ix.resolveQualified(text, m[1], m[2], span)
	}
	if digitsExact.MatchString(text) {
		return ix.resolveDigits(text, span)
	}
	return ix.resolveName(text, span)
}

func (ix *Index) resolveQualified(input, digits, suffix string, span models.Span) (models.ResolvedEntity, *errors.StandardError) {
	if len(digits) != 6 {
		return models.ResolvedEntity{}, errors.NewEntityInvalidLengthError(input, len(digits))
	}
	if !allowedSuffixes[suffix] {
		upper := strings.ToUpper(suffix)
		if allowedSuffixes[upper] {
			return models.ResolvedEntity{}, errors.NewEntityCaseMismatchError(input, "."+upper, digits+"."+upper)
		}
		suggestion := ""
		if s, ok := ix.byBare[digits]; ok {
			suggestion = s.Code
		}
		return models.ResolvedEntity{}, errors.NewEntityInvalidSuffixError(input, suffix, suggestion)
	}
	s, ok := ix.byCode[digits+"."+suffix]
	if !ok {
		return models.ResolvedEntity{}, errors.NewEntityNotFoundError(input)
	}
	return security(s, span), nil
}

func (ix *Index) resolveDigits(input string, span models.Span) (models.ResolvedEntity, *errors.StandardError) {
	if len(input) != 6 {
		return models.ResolvedEntity{}, errors.NewEntityInvalidLengthError(input, len(input))
	}
	s, ok := ix.byBare[input]
	if !ok {
		return models.ResolvedEntity{}, errors.NewEntityNotFoundError(input)
	}
	return security(s, span), nil
}

func (ix *Index) resolveName(input string, span models.Span) (models.ResolvedEntity, *errors.StandardError) {
	if s, ok := ix.byName[input]; ok {
		return security(s, span), nil
	}
	if full, ok := ix.shortNames[input]; ok {
		return models.ResolvedEntity{}, errors.NewEntityAmbiguousShortNameError(input, full)
	}
	if ix.sectors[input] {
		return models.ResolvedEntity{Kind: models.EntitySector, Code: input, Name: input, Span: span}, nil
	}
	return models.ResolvedEntity{}, errors.NewEntityNotFoundError(input)
}

func (ix *Index) resolveCandidate(c candidate) (models.ResolvedEntity, *errors.StandardError) {
	var (
		ent models.ResolvedEntity
		err *errors.StandardError
	)
	switch c.kind {
	case candQualified:
		m := qualifiedExact.FindStringSubmatch(c.text)
		ent, err = ix.resolveQualified(c.text, m[1], m[2], c.span)
	case candDigits:
		ent, err = ix.resolveDigits(c.text, c.span)
	default:
		ent, err = ix.resolveName(c.text, c.span)
	}
	if err == nil {
		ent.Span = c.span
	}
	return ent, err
}

func security(s models.Security, span models.Span) models.ResolvedEntity {
	return models.ResolvedEntity{Kind: models.EntitySecurity, Code: s.Code, Name: s.Name, Span: span}
}

// scan finds identifier-shaped tokens and known names in free text, in order.
// Names are matched longest first so 和而泰 or 平安银行 are never split.
func (ix *Index) scan(text string) []candidate {
	runes := []rune(text)
	covered := make([]bool, len(runes)+1)
	var out []candidate

	mark := func(start, end int) {
		for i := start; i < end; i++ {
			covered[i] = true
		}
	}

	for _, loc := range qualifiedScan.FindAllStringIndex(text, -1) {
		span := runeSpan(text, loc)
		out = append(out, candidate{kind: candQualified, text: text[loc[0]:loc[1]], span: span})
		mark(span.Start, span.End)
	}

	for _, loc := range codeLikeRuns(text) {
		span := runeSpan(text, loc)
		if covered[span.Start] {
			continue
		}
		out = append(out, candidate{kind: candDigits, text: text[loc[0]:loc[1]], span: span})
		mark(span.Start, span.End)
	}

	for i := 0; i < len(runes); {
		if covered[i] {
			i++
			continue
		}
		if e, ok := ix.longestAt(runes, i); ok {
			out = append(out, candidate{kind: e.kind, text: e.text, span: models.Span{Start: i, End: i + len(e.runes)}})
			i += len(e.runes)
			continue
		}
		i++
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].span.Start < out[j].span.Start })
	return out
}

// codeLikeRuns returns byte offsets of digit runs that look like a bare or
// mistyped security code rather than a quantity.
func codeLikeRuns(text string) [][]int {
	var out [][]int
	for _, loc := range digitRunScan.FindAllStringIndex(text, -1) {
		n := loc[1] - loc[0]
		if n < 5 || n > 7 {
			continue
		}
		if loc[0] > 0 && text[loc[0]-1] == '.' {
			continue
		}
		if loc[1] < len(text) {
			next, _ := utf8.DecodeRuneInString(text[loc[1]:])
			if strings.ContainsRune(quantityUnits, next) || next == '.' {
				continue
			}
		}
		out = append(out, loc)
	}
	return out
}

func (ix *Index) longestAt(runes []rune, i int) (nameEntry, bool) {
	for _, e := range ix.byFirst[runes[i]] {
		if i+len(e.runes) > len(runes) {
			continue
		}
		if string(runes[i:i+len(e.runes)]) == e.text {
			return e, true
		}
	}
	return nameEntry{}, false
}

func runeSpan(text string, loc []int) models.Span {
	start := utf8.RuneCountInString(text[:loc[0]])
	return models.Span{Start: start, End: start + utf8.RuneCountInString(text[loc[0]:loc[1]])}
}
