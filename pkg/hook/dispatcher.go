package hook

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/content"
	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/intent"
	"github.com/macropower/rulecat/pkg/log"
	"github.com/macropower/rulecat/pkg/metrics"
	"github.com/macropower/rulecat/pkg/selection"
)

const (
	DefaultMaxRules  = 5
	DefaultMaxTokens = 5000
)

// Pipeline stages, as reported in [Metadata.Timings].
const (
	StageDetect   = "detect"
	StageClassify = "classify"
	StageSelect   = "select"
	StageFetch    = "fetch"
	StageFormat   = "format"
	StageTotal    = "total"
)

var (
	ErrPanic     = errors.New("panic")
	ErrNoCatalog = errors.New("no catalog")

	tracer = otel.Tracer("hook")
)

// Fetcher resolves rule content.
type Fetcher interface {
	Fetch(ctx context.Context, infos []catalog.RuleInfo) []content.Rule
}

// Observer records request outcomes and stage durations.
type Observer interface {
	ObserveRequest(outcome string, rules, tokens int)
	ObserveStage(stage string, elapsed time.Duration)
}

// Dispatcher runs the rule selection pipeline for one request at a time. It
// holds no per-request state and may be used concurrently.
type Dispatcher struct {
	fetcher    Fetcher
	observer   Observer
	detector   *detect.Detector
	classifier *intent.Classifier
	catalog    *catalog.Catalog
	weights    *selection.Weights
	boosts     map[intent.Category][]string
	newID      func() string
	now        func() time.Time
	maxRules   int
	maxTokens  int
	minScore   int
	disabled   bool
}

// DispatcherOpt configures a [Dispatcher].
type DispatcherOpt func(*Dispatcher)

// WithAutoLoad enables or disables injection. Enabled by default.
func WithAutoLoad(enabled bool) DispatcherOpt {
	return func(d *Dispatcher) {
		d.disabled = !enabled
	}
}

// WithDetector replaces the default [detect.Detector].
func WithDetector(det *detect.Detector) DispatcherOpt {
	return func(d *Dispatcher) {
		d.detector = det
	}
}

// WithClassifier replaces the default [intent.Classifier].
func WithClassifier(c *intent.Classifier) DispatcherOpt {
	return func(d *Dispatcher) {
		d.classifier = c
	}
}

// WithCatalog replaces [catalog.Default].
func WithCatalog(c *catalog.Catalog) DispatcherOpt {
	return func(d *Dispatcher) {
		d.catalog = c
	}
}

// WithLimits sets the rule count and token budgets.
func WithLimits(maxRules, maxTokens int) DispatcherOpt {
	return func(d *Dispatcher) {
		d.maxRules = maxRules
		d.maxTokens = maxTokens
	}
}

// WithMinScore excludes rules scoring below minScore.
func WithMinScore(minScore int) DispatcherOpt {
	return func(d *Dispatcher) {
		d.minScore = minScore
	}
}

// WithWeights replaces [selection.DefaultWeights].
func WithWeights(w *selection.Weights) DispatcherOpt {
	return func(d *Dispatcher) {
		d.weights = w
	}
}

// WithBoosts replaces [selection.DefaultBoosts].
func WithBoosts(b map[intent.Category][]string) DispatcherOpt {
	return func(d *Dispatcher) {
		d.boosts = b
	}
}

// WithObserver sets an [Observer].
func WithObserver(o Observer) DispatcherOpt {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(fn func() string) DispatcherOpt {
	return func(d *Dispatcher) {
		d.newID = fn
	}
}

// WithClock replaces [time.Now] for stage timings.
func WithClock(now func() time.Time) DispatcherOpt {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a new [Dispatcher].
func NewDispatcher(fetcher Fetcher, opts ...DispatcherOpt) *Dispatcher {
	d := &Dispatcher{
		fetcher:   fetcher,
		newID:     uuid.NewString,
		now:       time.Now,
		maxRules:  DefaultMaxRules,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.detector == nil {
		d.detector = detect.NewDetector()
	}
	if d.classifier == nil {
		d.classifier = intent.Default()
	}
	if d.catalog == nil {
		d.catalog = catalog.Default()
	}

	return d
}

// Detector returns the detector used by the pipeline.
func (d *Dispatcher) Detector() *detect.Detector {
	return d.detector
}

// Classifier returns the classifier used by the pipeline.
func (d *Dispatcher) Classifier() *intent.Classifier {
	return d.classifier
}

// Catalog returns the catalog rules are selected from.
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog
}

// Fetcher returns the fetcher used to resolve rule content.
func (d *Dispatcher) Fetcher() Fetcher {
	return d.fetcher
}

// Params returns the selection parameters the pipeline uses for the given
// project context and intent.
func (d *Dispatcher) Params(pc detect.ProjectContext, in intent.Intent) selection.Params {
	return selection.Params{
		Weights:   d.weights,
		Boosts:    d.boosts,
		Category:  in.Category,
		Intent:    in,
		Project:   pc,
		MaxRules:  d.maxRules,
		MaxTokens: d.maxTokens,
		MinScore:  d.minScore,
	}
}

// Handle runs the pipeline for in. It never fails: errors and panics are
// logged and converted into [NoInjection].
func (d *Dispatcher) Handle(ctx context.Context, in Input) (out Output) {
	ctx, span := tracer.Start(ctx, "handle hook", trace.WithAttributes(
		attribute.String("hook.event", in.eventName()),
		attribute.String("hook.session", in.SessionID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			d.fail(ctx, span, fmt.Errorf("%w: %v", ErrPanic, r), debug.Stack())
			out = NoInjection()
		}
	}()

	res, err := d.handle(ctx, in)
	if err != nil {
		d.fail(ctx, span, err, nil)
		return NoInjection()
	}

	if res.Injected() {
		d.observeRequest(metrics.OutcomeInjected, len(res.Metadata.Resolved), res.Metadata.EstimatedTokens)
	} else {
		d.observeRequest(metrics.OutcomeSkipped, 0, 0)
	}

	return res
}

func (d *Dispatcher) handle(ctx context.Context, in Input) (Output, error) {
	logger := log.FromContext(ctx)

	if d.disabled {
		logger.DebugContext(ctx, "auto-load disabled")
		return NoInjection(), nil
	}

	message := in.LatestUserMessage()
	if message == "" {
		logger.DebugContext(ctx, "no user message")
		return NoInjection(), nil
	}

	if d.catalog == nil || d.catalog.Len() == 0 {
		return Output{}, ErrNoCatalog
	}

	meta := &Metadata{
		RequestID: d.newID(),
		Timings:   map[string]float64{},
	}
	start := d.now()
	ctx, logger = log.With(ctx, "request_id", meta.RequestID)

	mark := start
	stage := func(name string) {
		now := d.now()
		elapsed := now.Sub(mark)
		meta.Timings[name] = float64(elapsed.Microseconds()) / 1000
		if d.observer != nil {
			d.observer.ObserveStage(name, elapsed)
		}

		mark = now
	}

	meta.Context = d.detector.Detect(ctx, in.CWD)
	stage(StageDetect)

	meta.Intent = d.classifier.Classify(message)
	stage(StageClassify)

	selected := selection.Select(d.catalog.List(), d.Params(meta.Context, meta.Intent))
	stage(StageSelect)

	logger.DebugContext(ctx, "selected rules",
		"project", meta.Context.Summary(),
		"intent", meta.Intent.Category,
		"rules", selection.Paths(selected),
	)

	if len(selected) == 0 {
		return NoInjection(), nil
	}

	infos := make([]catalog.RuleInfo, 0, len(selected))
	meta.Matched = make([]MatchedRule, 0, len(selected))
	for _, s := range selected {
		infos = append(infos, s.Rule)
		meta.Matched = append(meta.Matched, MatchedRule{
			Path:    s.Rule.Path,
			Score:   s.Score,
			Reasons: s.Reasons,
			Tokens:  s.Rule.EstimatedTokens,
		})
	}

	rules := d.fetcher.Fetch(ctx, infos)
	stage(StageFetch)

	if len(rules) == 0 {
		logger.DebugContext(ctx, "no rules resolved", "requested", len(infos))
		return NoInjection(), nil
	}

	meta.Resolved = make([]string, 0, len(rules))
	for _, r := range rules {
		meta.Resolved = append(meta.Resolved, r.Path)
		meta.EstimatedTokens += r.EstimatedTokens
	}

	block := Format(meta.Context, meta.Intent, selected, rules)
	stage(StageFormat)

	meta.Timings[StageTotal] = float64(d.now().Sub(start).Microseconds()) / 1000

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("hook.request_id", meta.RequestID),
		attribute.Int("rules.selected", len(selected)),
		attribute.Int("rules.resolved", len(rules)),
	)

	logger.InfoContext(ctx, "injecting rules",
		"rules", meta.Resolved,
		"tokens", meta.EstimatedTokens,
	)

	return Output{
		Continue:      true,
		SystemMessage: SystemMessage(len(rules), meta.EstimatedTokens, meta.Context),
		HookSpecificOutput: &SpecificOutput{
			HookEventName:     in.eventName(),
			AdditionalContext: block,
		},
		Metadata: meta,
	}, nil
}

func (d *Dispatcher) fail(ctx context.Context, span trace.Span, err error, stack []byte) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []any{"err", err}
	if stack != nil {
		attrs = append(attrs, "stack", string(stack))
	}

	log.FromContext(ctx).ErrorContext(ctx, "hook failed, continuing without rules", attrs...)
	d.observeRequest(metrics.OutcomeFailed, 0, 0)
}

func (d *Dispatcher) observeRequest(outcome string, rules, tokens int) {
	if d.observer != nil {
		d.observer.ObserveRequest(outcome, rules, tokens)
	}
}
