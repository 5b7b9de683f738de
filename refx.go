// Package refx binds live values into markup built from literal text.
//
// A Runtime owns one document. Compiling a template embeds a marker on every
// element that carries a binding and records the bindings in the runtime's
// pending table. Once the markup is inserted into the document, the runtime's
// hydrator resolves the markers: sinks subscribe to reactive values and
// event handlers are delegated through one root listener per event name.
//
// Usage:
//
//	rt, err := refx.New(refx.Config{})
//	count := source.NewSignal(0)
//	inc := func(*dom.Event) any { return count.Update(func(n int) int { return n + 1 }) == nil }
//
//	markup, err := rt.HTML(`<button onclick="`, inc, `">`, count, `</button>`)
//	err = rt.Mount(nil, markup)
//	rt.RunUntilIdle()
package refx

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/refx/pkg/binding"
	"github.com/vango-dev/refx/pkg/dom"
	"github.com/vango-dev/refx/pkg/events"
	"github.com/vango-dev/refx/pkg/hydrate"
	"github.com/vango-dev/refx/pkg/loop"
	"github.com/vango-dev/refx/pkg/sink"
	"github.com/vango-dev/refx/pkg/telemetry"
	"github.com/vango-dev/refx/pkg/template"
)

// Runtime is the context object for one document root. Nothing in refx is
// process-wide; two runtimes never share markers or pending bindings.
type Runtime struct {
	cfg Config

	loop      *loop.Loop
	ownLoop   bool
	doc       *dom.Document
	table     *binding.Table
	markers   *binding.MarkerGenerator
	compiler  *template.Compiler
	sinks     *sink.Registry
	delegator *events.Delegator
	hydrator  *hydrate.Hydrator

	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	closed atomic.Bool
}

// Stats is a snapshot of a runtime's state.
type Stats struct {
	// Pending is the number of markers waiting for hydration.
	Pending int
	// Markers is the number of markers issued.
	Markers uint64
	// Listeners is the number of delegated root listeners.
	Listeners int
	// Hydration holds the hydrator's counters.
	Hydration hydrate.Stats
}

// New creates a runtime with its own document and starts observing it.
func New(cfg Config) (*Runtime, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer(telemetry.DefaultTracerName)
	}

	r := &Runtime{
		cfg:     cfg,
		loop:    cfg.Loop,
		table:   binding.NewTable(),
		markers: binding.NewMarkerGenerator(),
		logger:  logger.With("component", "refx"),
		metrics: cfg.Metrics,
		tracer:  tracer,
	}
	if r.loop == nil {
		r.loop = loop.New(loop.WithLogger(logger.With("component", "loop")))
		r.ownLoop = true
	}
	r.doc = dom.NewDocument(r.loop)

	var sinkOpts []sink.Option
	if p := cfg.sanitizer(); p != nil {
		sinkOpts = append(sinkOpts, sink.WithSanitizer(p))
	}
	r.sinks = sink.Default(sinkOpts...)

	r.delegator = events.New(r.doc.Root(),
		events.WithLogger(logger.With("component", "events")),
		events.WithDispatchHook(r.metrics.EventDispatched),
	)

	compilerOpts := []template.Option{template.WithLogger(logger.With("component", "template"))}
	if len(cfg.NonBubbling) > 0 {
		compilerOpts = append(compilerOpts, template.WithNonBubbling(cfg.NonBubbling...))
	}
	r.compiler = template.New(r.table, r.markers, compilerOpts...)

	hydrateOpts := []hydrate.Option{
		hydrate.WithLogger(logger.With("component", "hydrate")),
		hydrate.WithErrorPolicy(cfg.ErrorPolicy),
		hydrate.WithTracer(tracer),
	}
	if r.metrics != nil {
		hydrateOpts = append(hydrateOpts, hydrate.WithMetrics(r.metrics))
	}
	r.hydrator = hydrate.New(r.doc, r.table, r.sinks, r.delegator, r.loop, hydrateOpts...)
	if err := r.hydrator.Start(); err != nil {
		return nil, err
	}

	r.logger.Debug("runtime created",
		"errorPolicy", cfg.ErrorPolicy.String(),
		"sanitizeHTML", r.sinks.Sanitizing())
	return r, nil
}

// Compile compiles literals and values into marker-annotated markup.
func (r *Runtime) Compile(literals []string, values ...any) (string, error) {
	res, err := r.CompileResult(literals, values)
	if err != nil {
		return "", err
	}
	return res.Markup, nil
}

// HTML compiles alternating literal strings and values.
func (r *Runtime) HTML(parts ...any) (string, error) {
	literals, values, err := template.Split(parts...)
	if err != nil {
		return "", err
	}
	return r.Compile(literals, values...)
}

// CompileResult compiles and also returns the bindings and per-value report.
func (r *Runtime) CompileResult(literals []string, values []any) (*template.Result, error) {
	start := time.Now()
	_, span := telemetry.StartCompile(context.Background(), r.tracer, len(values))

	res, err := r.compiler.CompileResult(literals, values)

	telemetry.EndSpan(span, err)
	r.metrics.CompileDone(start, err)
	r.metrics.SetPending(r.table.Len())
	return res, err
}

// Mount replaces target's children with markup. A nil target is the body.
// Bindings resolve at the next microtask checkpoint of the loop.
func (r *Runtime) Mount(target *dom.Node, markup string) error {
	if target == nil {
		target = r.doc.Body()
	}
	return target.SetInnerHTML(markup)
}

// Render compiles parts, mounts the markup in the body, runs the loop until
// idle and returns the body's hydrated markup.
func (r *Runtime) Render(parts ...any) (string, error) {
	markup, err := r.HTML(parts...)
	if err != nil {
		return "", err
	}
	if err := r.Mount(nil, markup); err != nil {
		return "", err
	}
	r.RunUntilIdle()
	return r.doc.Body().InnerHTML(), nil
}

// Post queues fn as a task on the runtime's loop. Use it to touch the
// document from other goroutines while Run is active.
func (r *Runtime) Post(fn func()) { r.loop.Post(fn) }

// Run processes loop work until ctx is cancelled or the runtime is closed.
func (r *Runtime) Run(ctx context.Context) error { return r.loop.Run(ctx) }

// RunUntilIdle runs the loop until no work is left.
func (r *Runtime) RunUntilIdle() int {
	n := r.loop.RunUntilIdle()
	r.metrics.SetPending(r.table.Len())
	return n
}

// Bubbles reports whether event bubbles under this runtime's non-bubbling
// set.
func (r *Runtime) Bubbles(event string) bool { return !r.compiler.NonBubbling(event) }

// Document returns the runtime's document.
func (r *Runtime) Document() *dom.Document { return r.doc }

// Loop returns the runtime's host loop.
func (r *Runtime) Loop() *loop.Loop { return r.loop }

// Delegator returns the event delegator.
func (r *Runtime) Delegator() *events.Delegator { return r.delegator }

// Hydrator returns the hydrator.
func (r *Runtime) Hydrator() *hydrate.Hydrator { return r.hydrator }

// Pending returns the pending binding table.
func (r *Runtime) Pending() *binding.Table { return r.table }

// Sinks returns the sink registry.
func (r *Runtime) Sinks() *sink.Registry { return r.sinks }

// Stats returns a snapshot of the runtime's state.
func (r *Runtime) Stats() Stats {
	return Stats{
		Pending:   r.table.Len(),
		Markers:   r.markers.Current(),
		Listeners: r.delegator.ListenerCount(),
		Hydration: r.hydrator.Stats(),
	}
}

// Close stops hydration, releases every binding and listener, and closes
// the loop if the runtime created it.
func (r *Runtime) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	r.hydrator.Stop()
	r.delegator.Close()
	r.table.Clear()
	if r.ownLoop {
		r.loop.Close()
	}
	r.logger.Debug("runtime closed")
}
