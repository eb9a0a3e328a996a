// internal/workers/routing/validate-parameters/handler.go
package validateparameters

import (
	"context"
	"time"

	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

const (
	TaskType = "validate-parameters"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Output{Result: h.Validate(input.Bag, input.Template)}, nil
}

type check func(bag *models.ParameterBag, tmpl *models.Template) *errors.StandardError

// Validate runs every check in order and reports the first failure.
// An extraction error is returned unchanged.
func (h *Handler) Validate(bag *models.ParameterBag, tmpl *models.Template) models.ValidationResult {
	start := time.Now()
	if bag == nil || tmpl == nil {
		return fail(errors.NewInternalError(nil).WithDetail("reason", "validation needs a bag and a template"))
	}
	if bag.Failed() {
		return fail(bag.Err)
	}

	checks := []check{
		h.checkRequired,
		h.checkLimit,
		h.checkPeriod,
		h.checkCardinality,
		h.checkExclusions,
	}
	for _, c := range checks {
		if err := c(bag, tmpl); err != nil {
			h.logger.Debug("validation failed", map[string]interface{}{
				"template":  tmpl.Name,
				"errorCode": string(err.Code),
			})
			return fail(err)
		}
	}
	h.logger.Debug("validation passed", map[string]interface{}{
		"template":   tmpl.Name,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return models.ValidationResult{Passed: true}
}

func fail(err *errors.StandardError) models.ValidationResult {
	return models.ValidationResult{Passed: false, Err: err}
}

// checkRequired accepts a missing kind only when the template declares a default for it.
func (h *Handler) checkRequired(bag *models.ParameterBag, tmpl *models.Template) *errors.StandardError {
	for _, kind := range tmpl.Required {
		if bag.Has(kind) {
			continue
		}
		if kind == models.ParamSector && bag.UnscopedSector != "" {
			return errors.NewScopeMissingError(bag.UnscopedSector)
		}
		if _, ok := tmpl.DefaultFor(kind); ok {
			continue
		}
		return errors.NewMissingParameterError(tmpl.Name, string(kind))
	}
	return nil
}

func (h *Handler) checkLimit(bag *models.ParameterBag, tmpl *models.Template) *errors.StandardError {
	if !tmpl.Accepts(models.ParamLimit) || !bag.HasLimit {
		return nil
	}
	if bag.Limit < h.config.MinLimit || bag.Limit > h.config.MaxLimit {
		return errors.NewLimitOutOfRangeError(bag.Limit, h.config.MaxLimit)
	}
	return nil
}

func (h *Handler) checkPeriod(bag *models.ParameterBag, tmpl *models.Template) *errors.StandardError {
	p := bag.Period
	if p == nil {
		return nil
	}
	start, end := p.Bounds()
	if !isDate(start) {
		return errors.NewInvalidDateError(start, "period bound is not a trading date")
	}
	if !isDate(end) {
		return errors.NewInvalidDateError(end, "period bound is not a trading date")
	}
	if start > end {
		return errors.NewRangeInvertedError(start, end)
	}
	return checkPeriodKind(p, tmpl)
}

// checkPeriodKind rejects a period shape the template's query cannot use. A
// single date is accepted wherever a range is. Templates that take no period
// at all ignore it.
func checkPeriodKind(p *models.ResolvedPeriod, tmpl *models.Template) *errors.StandardError {
	var accepted []string
	for _, k := range []models.ParamKind{models.ParamDate, models.ParamDateRange, models.ParamReportPeriod} {
		if tmpl.Accepts(k) {
			accepted = append(accepted, string(k))
		}
	}
	if len(accepted) == 0 {
		return nil
	}

	ok := false
	switch p.Kind {
	case models.PeriodDate:
		ok = tmpl.Accepts(models.ParamDate) || tmpl.Accepts(models.ParamDateRange)
	case models.PeriodRange:
		ok = tmpl.Accepts(models.ParamDateRange)
	case models.PeriodReport:
		ok = tmpl.Accepts(models.ParamReportPeriod)
	}
	if !ok {
		return errors.NewPeriodKindError(tmpl.Name, string(p.Kind), accepted)
	}
	return nil
}

func (h *Handler) checkCardinality(bag *models.ParameterBag, tmpl *models.Template) *errors.StandardError {
	if !tmpl.Accepts(models.ParamEntity) && !tmpl.Accepts(models.ParamEntities) {
		return nil
	}
	n := len(bag.Securities())
	if n < tmpl.MinEntities || (tmpl.MaxEntities > 0 && n > tmpl.MaxEntities) {
		return errors.NewEntityCardinalityError(tmpl.Name, n, tmpl.MinEntities, tmpl.MaxEntities)
	}
	return nil
}

func (h *Handler) checkExclusions(bag *models.ParameterBag, tmpl *models.Template) *errors.StandardError {
	for _, r := range bag.Exclusions {
		if !tmpl.AllowsExclusion(r) {
			return errors.NewExclusionNotAllowedError(tmpl.Name, string(r))
		}
	}
	return nil
}

func isDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}
