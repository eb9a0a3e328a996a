// internal/workers/resolution/extract-parameters/handler.go
package extractparameters

import (
	"context"
	"regexp"
	"strings"
	"time"

	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/models"
	resolveentity "query-router/internal/workers/resolution/resolve-entity"
	resolveperiod "query-router/internal/workers/resolution/resolve-period"
)

const (
	TaskType = "extract-parameters"
)

var scopeMarker = regexp.MustCompile(`(\p{Han}{2,4}?)(板块|行业)`)

type Handler struct {
	config   *Config
	entities *resolveentity.Resolver
	periods  *resolveperiod.Resolver
	logger   logger.Logger
}

func NewHandler(config *Config, entities *resolveentity.Resolver, periods *resolveperiod.Resolver, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		entities: entities,
		periods:  periods,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Normalize applies the two text-only stages. The matcher runs on its result.
func Normalize(text string) string {
	return normalizeQuantity(normalizeTemporal(strings.TrimSpace(toHalfWidth(text))))
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	bag, err := h.Extract(ctx, input.Question, input.Template)
	if err != nil {
		return nil, err
	}
	return &Output{Bag: bag}, nil
}

// Extract runs the six stages in order. A stage failure marks the bag
// terminal but the remaining stages still fill in diagnostics.
func (h *Handler) Extract(ctx context.Context, q models.Question, tmpl *models.Template) (*models.ParameterBag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	bag := &models.ParameterBag{Order: models.OrderDesc}

	text := strings.TrimSpace(toHalfWidth(q.Text))
	if text == "" {
		bag.Fail(errors.NewEmptyQuestionError())
		return bag, nil
	}

	// 1. temporal
	normalized := normalizeTemporal(text)
	pending := h.resolveTemporal(ctx, bag, parseTokens(normalized), tmpl)

	// 2. quantity
	normalized = normalizeQuantity(normalized)
	bag.Normalized = normalized
	masked := maskTokens(normalized)

	// 3. entities
	sectors := h.extractEntities(bag, masked, tmpl)

	// 4. sector scope
	h.extractSector(bag, masked, sectors, tmpl)

	// 5. limit and order
	if n, ok := extractLimit(masked); ok {
		bag.Limit, bag.HasLimit = n, true
	} else {
		bag.Limit, bag.HasLimit, bag.LimitDefaulted = h.config.DefaultLimit, true, true
	}
	bag.Order = extractOrder(masked)

	// 6. exclusions
	for _, r := range extractExclusions(masked) {
		bag.AddExclusion(r)
	}

	bag.Residue = residue(masked, bag.Entities, sectors)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.applyDefaults(ctx, bag, tmpl, pending)

	fields := map[string]interface{}{
		"entities":   len(bag.Entities),
		"hasPeriod":  bag.Period != nil,
		"limit":      bag.Limit,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if bag.Failed() {
		fields["errorCode"] = string(bag.Err.Code)
	}
	h.logger.Debug("parameters extracted", fields)
	return bag, nil
}

func (h *Handler) extractEntities(bag *models.ParameterBag, masked string, tmpl *models.Template) []models.ResolvedEntity {
	ents, err := h.entities.ResolveMany(masked)
	if err != nil {
		// A question with no recognizable entity is fine unless one is
		// required or the text carries something code-shaped.
		if err.Code != errors.ErrCodeEntityNotFound || requiresSecurity(tmpl) || resolveentity.HasIdentifier(masked) {
			bag.Fail(err)
		}
		return nil
	}
	var sectors []models.ResolvedEntity
	for _, e := range ents {
		if e.Kind == models.EntitySector {
			sectors = append(sectors, e)
			continue
		}
		bag.Entities = append(bag.Entities, e)
	}
	return sectors
}

func requiresSecurity(tmpl *models.Template) bool {
	return tmpl != nil && (tmpl.Requires(models.ParamEntity) || tmpl.Requires(models.ParamEntities))
}

// extractSector only accepts a sector directly followed by 板块 or 行业.
func (h *Handler) extractSector(bag *models.ParameterBag, masked string, sectors []models.ResolvedEntity, tmpl *models.Template) {
	runes := []rune(masked)
	for _, s := range sectors {
		if hasScopeMarker(runes, s.Span.End) {
			sector := s
			bag.Sector = &sector
			return
		}
	}
	if len(sectors) > 0 {
		bag.UnscopedSector = sectors[0].Name
		return
	}
	if tmpl != nil && tmpl.Requires(models.ParamSector) {
		if m := scopeMarker.FindStringSubmatch(masked); m != nil {
			bag.Fail(errors.NewEntityNotFoundError(m[1] + m[2]))
		}
	}
}

func hasScopeMarker(runes []rune, at int) bool {
	if at+2 > len(runes) {
		return false
	}
	next := string(runes[at : at+2])
	return next == "板块" || next == "行业"
}

// residue is what is left once tokens and resolved names are removed.
func residue(masked string, entities, sectors []models.ResolvedEntity) string {
	runes := []rune(masked)
	blank := func(sp models.Span) {
		for i := sp.Start; i < sp.End && i < len(runes); i++ {
			runes[i] = ' '
		}
	}
	for _, e := range entities {
		blank(e.Span)
	}
	for _, s := range sectors {
		blank(s.Span)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}

// applyDefaults fills the period slot from the template's default policy.
func (h *Handler) applyDefaults(ctx context.Context, bag *models.ParameterBag, tmpl *models.Template, pending *models.ReportKind) {
	if bag.Failed() {
		return
	}
	code := ""
	if codes := bag.Codes(); len(codes) > 0 {
		code = codes[0]
	}

	if pending != nil && bag.Period == nil {
		p, err := h.periods.LatestReportingPeriod(ctx, code, *pending)
		h.setPeriod(bag, p, err)
	}
	if tmpl == nil {
		return
	}

	if tmpl.Accepts(models.ParamReportPeriod) {
		stated := bag.Period != nil && !(bag.Period.Latest && bag.Period.Kind == models.PeriodDate)
		if policy, ok := tmpl.DefaultFor(models.ParamReportPeriod); ok && !stated && policy == models.DefaultLatestReport {
			p, err := h.periods.LatestReportingPeriod(ctx, code, models.ReportAny)
			h.setPeriod(bag, p, err)
		}
		return
	}
	if bag.Period != nil {
		return
	}

	if policy, ok := tmpl.DefaultFor(models.ParamDate); ok && policy == models.DefaultLatestDate {
		p, err := h.periods.ResolveLatest(ctx)
		h.setPeriod(bag, p, err)
		return
	}
	if policy, ok := tmpl.DefaultFor(models.ParamDateRange); ok && policy == models.DefaultRecentDays {
		days := tmpl.RecentDays
		if days <= 0 {
			days = 20
		}
		p, err := h.periods.TradingDaysBefore(ctx, days, "")
		h.setPeriod(bag, p, err)
	}
}

// setPeriod records p. An inverted range is kept for diagnostics but fails the
// bag, so neither path runs with it.
func (h *Handler) setPeriod(bag *models.ParameterBag, p *models.ResolvedPeriod, err *errors.StandardError) {
	if err != nil {
		bag.Fail(err)
		return
	}
	bag.Period = p
	if p != nil && p.Kind == models.PeriodRange && p.Start > p.End {
		bag.Fail(errors.NewRangeInvertedError(p.Start, p.End))
	}
}
