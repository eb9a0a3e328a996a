// internal/pipeline/controller.go
package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/common/observability"
	"query-router/internal/models"
	llmfallback "query-router/internal/workers/ai-conversation/llm-fallback"
	normalizeoutput "query-router/internal/workers/ai-conversation/normalize-output"
	queryelasticsearch "query-router/internal/workers/data-access/query-elasticsearch"
	querypostgresql "query-router/internal/workers/data-access/query-postgresql"
	buildresponse "query-router/internal/workers/infrastructure/build-response"
	extractparameters "query-router/internal/workers/resolution/extract-parameters"
	selecttemplate "query-router/internal/workers/routing/select-template"
	validateparameters "query-router/internal/workers/routing/validate-parameters"
)

// Stages are the handlers one request passes through. Search may be nil when
// no search cluster is configured.
type Stages struct {
	Selector   *selecttemplate.Handler
	Extractor  *extractparameters.Handler
	Validator  *validateparameters.Handler
	Postgres   *querypostgresql.Handler
	Search     *queryelasticsearch.Handler
	Fallback   *llmfallback.Handler
	Normalizer *normalizeoutput.Handler
	Envelope   *buildresponse.Handler
}

// Recorder is the per-request observability sink.
type Recorder interface {
	RecordRequest(ctx context.Context, path, template, errorCode string, d time.Duration)
}

// Controller drives one question through
// Matched -> Validating -> {FastExecute | Reject}, Unmatched -> FallbackExecute,
// and builds the envelope exactly once.
type Controller struct {
	config   *Config
	stages   Stages
	recorder Recorder
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewController(config *Config, stages Stages, recorder Recorder, log logger.Logger) *Controller {
	return &Controller{
		config:   config,
		stages:   stages,
		recorder: recorder,
		errors:   errors.NewErrorHandler(log),
		logger:   log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// outcome is the terminal state handed to the envelope builder.
type outcome struct {
	path     models.ExecutionPath
	template string
	data     interface{}
	err      *errors.StandardError
}

func reject(path models.ExecutionPath, template string, err *errors.StandardError) outcome {
	return outcome{path: path, template: template, err: err}
}

// Handle answers one question. It never returns nil.
func (c *Controller) Handle(ctx context.Context, q models.Question) *models.ResultEnvelope {
	started := time.Now()
	requestID := uuid.NewString()

	metrics.InflightQueries.Inc()
	defer metrics.InflightQueries.Dec()

	timeout := c.config.RequestTimeout
	if q.Deadline > 0 && (timeout <= 0 || q.Deadline < timeout) {
		timeout = q.Deadline
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, span := observability.StartSpan(ctx, "pipeline.handle", attribute.String("request.id", requestID))
	out := c.run(ctx, q)

	env, err := c.stages.Envelope.Execute(ctx, &buildresponse.Input{
		RequestID:       requestID,
		Path:            out.path,
		MatchedTemplate: out.template,
		Data:            out.data,
		Error:           out.err,
		StartedAt:       started,
	})
	var envelope *models.ResultEnvelope
	if err != nil {
		c.logger.Error("envelope build failed", map[string]interface{}{"requestId": requestID, "error": err.Error()})
		envelope = c.stages.Envelope.Fallback(requestID, out.path, err)
	} else {
		envelope = &env.Envelope
	}

	c.finish(ctx, requestID, out, envelope, time.Since(started))
	var spanErr error
	if envelope.Error != nil {
		spanErr = stderrors.New(envelope.Error.Code)
	}
	span.SetAttributes(
		attribute.String("execution.path", string(envelope.ExecutionPath)),
		attribute.String("template", envelope.MatchedTemplate),
	)
	observability.EndSpan(span, spanErr)
	return envelope
}

func (c *Controller) finish(ctx context.Context, requestID string, out outcome, env *models.ResultEnvelope, d time.Duration) {
	code := ""
	if env.Error != nil {
		code = env.Error.Code
	}
	path := string(env.ExecutionPath)

	metrics.QueriesTotal.WithLabelValues(path, env.MatchedTemplate, code).Inc()
	metrics.QueryDuration.WithLabelValues(path).Observe(d.Seconds())
	if c.recorder != nil {
		c.recorder.RecordRequest(context.WithoutCancel(ctx), path, env.MatchedTemplate, code, d)
	}

	fields := map[string]interface{}{
		"requestId":       requestID,
		"executionPath":   path,
		"matchedTemplate": env.MatchedTemplate,
		"durationMs":      d.Milliseconds(),
	}
	if out.err != nil {
		c.errors.Normalize(out.err, fields)
		return
	}
	c.logger.Info("question answered", fields)
}

func (c *Controller) run(ctx context.Context, q models.Question) outcome {
	if strings.TrimSpace(q.Text) == "" {
		return reject(models.PathFast, "", errors.NewEmptyQuestionError())
	}

	var sel *selecttemplate.Output
	err := c.stage(ctx, "select", func(ctx context.Context) error {
		var err error
		sel, err = c.stages.Selector.Execute(ctx, &selecttemplate.Input{
			Normalized:   extractparameters.Normalize(q.Text),
			DeclaredHint: q.DeclaredHint,
		})
		return err
	})
	if err != nil {
		return reject(models.PathFast, "", c.stageError(ctx, models.PathFast, err))
	}
	templateName := ""
	if sel.Matched {
		templateName = sel.Template.Name
	}

	var bag *models.ParameterBag
	err = c.stage(ctx, "extract", func(ctx context.Context) error {
		var err error
		bag, err = c.stages.Extractor.Extract(ctx, q, sel.Template)
		return err
	})
	if err != nil {
		return reject(models.PathFast, templateName, c.stageError(ctx, models.PathFast, err))
	}
	// Local errors are final on either path.
	if bag.Failed() {
		return reject(models.PathFast, templateName, bag.Err)
	}

	if !sel.Matched {
		return c.fallback(ctx, q, bag)
	}
	if serr := interrupted(ctx, models.PathFast); serr != nil {
		return reject(models.PathFast, templateName, serr)
	}

	var result models.ValidationResult
	_ = c.stage(ctx, "validate", func(ctx context.Context) error {
		result = c.stages.Validator.Validate(bag, sel.Template)
		if !result.Passed {
			return result.Err
		}
		return nil
	})
	if !result.Passed {
		return reject(models.PathFast, templateName, result.Err)
	}

	return c.fastExecute(ctx, sel.Template, bag)
}

func (c *Controller) fastExecute(ctx context.Context, tmpl *models.Template, bag *models.ParameterBag) outcome {
	if serr := interrupted(ctx, models.PathFast); serr != nil {
		return reject(models.PathFast, tmpl.Name, serr)
	}

	var (
		data    interface{}
		service string
	)
	err := c.stage(ctx, "execute", func(ctx context.Context) error {
		switch tmpl.Executor {
		case models.ExecutorElasticsearch:
			service = "elasticsearch"
			if c.stages.Search == nil {
				return stderrors.New("search cluster not configured")
			}
			out, err := c.stages.Search.Execute(ctx, &queryelasticsearch.Input{Template: tmpl, Bag: bag})
			if err != nil {
				return err
			}
			data = out.Result
		default:
			service = "postgres"
			out, err := c.stages.Postgres.Execute(ctx, &querypostgresql.Input{Template: tmpl, Bag: bag})
			if err != nil {
				return err
			}
			data = out.Result
		}
		return nil
	})
	if err != nil {
		return reject(models.PathFast, tmpl.Name, executionError(ctx, models.PathFast, tmpl.Name, service, err))
	}
	return outcome{path: models.PathFast, template: tmpl.Name, data: data}
}

func (c *Controller) fallback(ctx context.Context, q models.Question, bag *models.ParameterBag) outcome {
	if serr := interrupted(ctx, models.PathFallback); serr != nil {
		return reject(models.PathFallback, "", serr)
	}

	var raw *llmfallback.Output
	err := c.stage(ctx, "fallback", func(ctx context.Context) error {
		var err error
		raw, err = c.stages.Fallback.Execute(ctx, &llmfallback.Input{
			Question:     q.Text,
			Hints:        llmfallback.HintsFromBag(bag),
			IncludeSteps: q.IncludeSteps,
		})
		return err
	})
	if err != nil {
		metrics.FallbackCalls.WithLabelValues("error").Inc()
		return reject(models.PathFallback, "", executionError(ctx, models.PathFallback, "", "genai", err))
	}
	metrics.FallbackCalls.WithLabelValues("ok").Inc()

	var (
		answer *models.FinalAnswer
		serr   *errors.StandardError
	)
	_ = c.stage(ctx, "normalize", func(ctx context.Context) error {
		answer, serr = c.stages.Normalizer.Normalize(&normalizeoutput.Input{
			Raw:          raw.Raw,
			Steps:        raw.Steps,
			IncludeSteps: q.IncludeSteps,
		})
		if serr != nil {
			return serr
		}
		return nil
	})
	if serr != nil {
		metrics.NormalizerRecognizer.WithLabelValues("none").Inc()
		return reject(models.PathFallback, "", serr)
	}
	metrics.NormalizerRecognizer.WithLabelValues(answer.Recognizer).Inc()
	return outcome{path: models.PathFallback, data: answer}
}

// stage runs fn inside a span and records its duration.
func (c *Controller) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "pipeline."+name)
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	observability.EndSpan(span, err)
	return err
}

func (c *Controller) stageError(ctx context.Context, path models.ExecutionPath, err error) *errors.StandardError {
	if serr := interrupted(ctx, path); serr != nil {
		return serr
	}
	if se, ok := errors.As(err); ok {
		return se
	}
	return errors.NewInternalError(err)
}
