package flow

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jordanhubbard/astrohub/internal/prompt"
	"github.com/jordanhubbard/astrohub/internal/providers"
	"github.com/jordanhubbard/astrohub/internal/repair"
	"github.com/jordanhubbard/astrohub/internal/report"
	"github.com/jordanhubbard/astrohub/internal/router"
	"github.com/jordanhubbard/astrohub/internal/store"
)

// Completer runs the provider fallback chain.
type Completer interface {
	Complete(ctx context.Context, req router.Request) (router.Completion, error)
}

// VisionCompleter sends one multimodal request for a palm photo.
type VisionCompleter interface {
	Available() bool
	Complete(ctx context.Context, id, prompt, fileID string, p router.Params) (router.Completion, error)
}

// Ledger is the part of the order store the flow writes to.
type Ledger interface {
	CreateOrder(ctx context.Context, o store.NewOrder) (store.Order, bool, error)
	UpdateOrder(ctx context.Context, id int64, u store.OrderUpdate) error
	LogRun(ctx context.Context, r store.ReportRun) error
}

// Recorder receives pipeline metrics.
type Recorder interface {
	ObserveReport(kind, outcome string, d time.Duration)
	ObserveRepairStage(kind, stage string)
	ObserveOrder(kind string)
}

// Pipeline outcomes, shared by metrics and the run log.
const (
	OutcomeSuccess       = "success"
	OutcomeParseError    = "parse_error"
	OutcomeProviderError = "provider_error"
	OutcomeNoProviders   = "no_providers"
)

// Job is one report request bound to the order it was paid with.
type Job struct {
	OrderID int64
	Input   prompt.Input
	// PhotoID enables the vision attempt for palm reports.
	PhotoID string
}

// Result is what the pipeline wants delivered. User messages go to the
// requester; Operator messages are only shown when the requester is the
// operator.
type Result struct {
	RunID    string
	Outcome  string
	Report   map[string]any
	User     []string
	Operator []string
}

// Pipeline turns a Job into a rendered report and records the trace on the
// order.
type Pipeline struct {
	engine    Completer
	vision    VisionCompleter
	validator *repair.Validator
	ledger    Ledger
	metrics   Recorder
	params    router.Params
}

func NewPipeline(engine Completer, vision VisionCompleter, validator *repair.Validator, ledger Ledger) *Pipeline {
	return &Pipeline{
		engine:    engine,
		vision:    vision,
		validator: validator,
		ledger:    ledger,
		params:    router.DefaultParams(),
	}
}

// SetRecorder attaches a metrics recorder.
func (p *Pipeline) SetRecorder(r Recorder) { p.metrics = r }

// Run executes the job once. It never returns an error: every failure is
// turned into messages and a ledger trace.
func (p *Pipeline) Run(ctx context.Context, job Job) Result {
	runID := uuid.NewString()
	ctx = providers.WithRunID(ctx, runID)
	kind := job.Input.Kind()
	start := time.Now()
	log := slog.With(
		slog.String("run_id", runID),
		slog.Int64("order_id", job.OrderID),
		slog.String("kind", string(kind)),
	)

	run := store.ReportRun{RunID: runID, OrderID: job.OrderID, Kind: string(kind)}
	res := Result{RunID: runID}

	if obj, meta, c, stage, ok := p.tryVision(ctx, log, job, runID); ok {
		run.Vision = true
		res = p.succeed(ctx, log, job, res, obj, meta, c, stage, &run)
		p.finish(ctx, log, &run, res.Outcome, start)
		return res
	}

	c, err := p.engine.Complete(ctx, router.Request{
		ID:       runID,
		Messages: prompt.Build(job.Input),
		Params:   p.params,
	})
	texts := failures[kind]
	if err != nil {
		res.Outcome = OutcomeProviderError
		if errors.Is(err, router.ErrNoProviders) {
			res.Outcome = OutcomeNoProviders
		}
		log.Error("report generation failed", slog.String("error", err.Error()))
		p.merge(ctx, log, job.OrderID, store.OrderUpdate{Meta: map[string]any{kind.ErrorKey(): err.Error()}})
		res.User = []string{texts.errorUser}
		res.Operator = []string{html.EscapeString(texts.errorOperator + err.Error())}
		p.finish(ctx, log, &run, res.Outcome, start)
		return res
	}
	run.ProviderID, run.Model = c.ProviderID, c.Model

	parsed, err := repair.Parse(c.Text)
	if err != nil {
		res.Outcome = OutcomeParseError
		log.Warn("model output is not a JSON object",
			slog.String("provider", c.ProviderID),
			slog.String("model", c.Model),
			slog.Int("length", len(c.Text)),
		)
		p.merge(ctx, log, job.OrderID, store.OrderUpdate{Meta: map[string]any{
			kind.RawKey(): repair.Truncate(c.Text, repair.RawLimit),
		}})
		res.Operator = []string{html.EscapeString(texts.parseOperator + repair.Snippet(c.Text))}
		res.User = []string{texts.parseUser}
		p.finish(ctx, log, &run, res.Outcome, start)
		return res
	}

	res = p.succeed(ctx, log, job, res, parsed.Object, nil, c, parsed.Stage, &run)
	p.finish(ctx, log, &run, res.Outcome, start)
	return res
}

// tryVision makes the single vision attempt. Any failure, including an
// unparseable reply, reports ok=false so the caller uses the text chain.
func (p *Pipeline) tryVision(ctx context.Context, log *slog.Logger, job Job, runID string) (map[string]any, map[string]any, router.Completion, string, bool) {
	palm, isPalm := job.Input.(prompt.Palm)
	if !isPalm || job.PhotoID == "" || p.vision == nil || !p.vision.Available() {
		return nil, nil, router.Completion{}, "", false
	}
	c, err := p.vision.Complete(ctx, runID, prompt.VisionText(palm), job.PhotoID, p.params)
	if err != nil {
		log.Warn("palm vision path failed", slog.String("error", err.Error()))
		return nil, nil, router.Completion{}, "", false
	}
	parsed, err := repair.Parse(c.Text)
	if err != nil {
		log.Warn("palm vision reply is not a JSON object", slog.String("model", c.Model))
		return nil, nil, router.Completion{}, "", false
	}
	meta := map[string]any{
		"vision": map[string]string{"provider": c.ProviderID, "model": c.Model},
	}
	return parsed.Object, meta, c, parsed.Stage, true
}

func (p *Pipeline) succeed(ctx context.Context, log *slog.Logger, job Job, res Result, obj, extra map[string]any,
	c router.Completion, stage string, run *store.ReportRun) Result {
	kind := job.Input.Kind()
	run.ProviderID, run.Model, run.RepairStage = c.ProviderID, c.Model, stage

	meta := map[string]any{kind.ReportKey(): obj}
	for k, v := range extra {
		meta[k] = v
	}
	if violations := p.validator.Validate(string(kind), obj); len(violations) > 0 {
		log.Warn("report does not match schema", slog.Int("violations", len(violations)))
		meta[kind.SchemaErrorsKey()] = violations
	}
	p.merge(ctx, log, job.OrderID, store.OrderUpdate{Status: store.StatusDone, Meta: meta})
	if p.metrics != nil {
		p.metrics.ObserveRepairStage(string(kind), stage)
	}

	log.Info("report generated",
		slog.String("provider", c.ProviderID),
		slog.String("model", c.Model),
		slog.String("repair_stage", stage),
	)
	res.Outcome = OutcomeSuccess
	res.Report = obj
	res.User = []string{report.Render(kind, obj)}
	return res
}

func (p *Pipeline) merge(ctx context.Context, log *slog.Logger, orderID int64, u store.OrderUpdate) {
	if orderID == 0 || p.ledger == nil {
		return
	}
	if err := p.ledger.UpdateOrder(ctx, orderID, u); err != nil {
		log.Error("order update failed", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, run *store.ReportRun, outcome string, start time.Time) {
	elapsed := time.Since(start)
	run.Outcome = outcome
	run.LatencyMs = elapsed.Milliseconds()
	if p.metrics != nil {
		p.metrics.ObserveReport(run.Kind, outcome, elapsed)
	}
	if p.ledger == nil {
		return
	}
	if err := p.ledger.LogRun(ctx, *run); err != nil {
		log.Warn("failed to record report run", slog.String("error", err.Error()))
	}
}
