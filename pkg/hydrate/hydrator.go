package hydrate

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/refx/internal/errors"
	"github.com/vango-dev/refx/pkg/binding"
	"github.com/vango-dev/refx/pkg/dom"
	"github.com/vango-dev/refx/pkg/events"
	"github.com/vango-dev/refx/pkg/sink"
	"github.com/vango-dev/refx/pkg/source"
)

// MountEvent is the synthetic event posted to elements declaring onmount.
const MountEvent = "mount"

// Metrics receives hydration counters. telemetry.Metrics implements it.
type Metrics interface {
	BindingResolved(kind string)
	HydrationMiss()
	SourceError(kind string)
	NodesReleased(n int)
}

// Stats is a snapshot of a hydrator's counters.
type Stats struct {
	// Elements is the number of elements that carried a marker.
	Elements int
	// Bindings is the number of bindings resolved.
	Bindings int
	// Misses counts markers with no pending bindings.
	Misses int
	// Errors counts source and sink errors reported to bindings.
	Errors int
	// Released counts elements whose resources were released.
	Released int
	// Live is the number of elements currently holding resources.
	Live int
}

// Option configures a Hydrator.
type Option func(*Hydrator)

// WithLogger sets the hydrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hydrator) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithErrorPolicy sets what happens to a binding whose source fails.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(h *Hydrator) {
		h.policy = p
	}
}

// WithMetrics reports counters to m.
func WithMetrics(m Metrics) Option {
	return func(h *Hydrator) {
		h.metrics = m
	}
}

// WithTracer traces each mutation batch and HydrateTree call.
func WithTracer(t trace.Tracer) Option {
	return func(h *Hydrator) {
		if t != nil {
			h.tracer = t
		}
	}
}

// record is the arena entry of a bound element.
type record struct {
	node      *dom.Node
	disposers []source.Disposer
	cursors   []*source.Cursor
	events    int
}

// Hydrator turns pending bindings into live subscriptions and handlers.
type Hydrator struct {
	doc       *dom.Document
	table     *binding.Table
	sinks     *sink.Registry
	delegator *events.Delegator
	sched     source.Scheduler

	observer *dom.MutationObserver
	policy   ErrorPolicy
	logger   *slog.Logger
	metrics  Metrics
	tracer   trace.Tracer

	mu    sync.Mutex
	arena map[dom.NodeID]*record
	stats Stats
}

// New creates a hydrator for doc. Call Start to begin observing.
func New(doc *dom.Document, table *binding.Table, sinks *sink.Registry, delegator *events.Delegator, sched source.Scheduler, opts ...Option) *Hydrator {
	h := &Hydrator{
		doc:       doc,
		table:     table,
		sinks:     sinks,
		delegator: delegator,
		sched:     sched,
		logger:    slog.Default().With("component", "hydrate"),
		tracer:    otel.Tracer("refx/hydrate"),
		arena:     make(map[dom.NodeID]*record),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start installs the mutation observer on the document root.
func (h *Hydrator) Start() error {
	if h.observer != nil {
		return nil
	}
	obs := dom.NewMutationObserver(h.onMutations)
	if err := obs.Observe(h.doc.Root(), dom.ObserveOptions{ChildList: true, Subtree: true}); err != nil {
		return err
	}
	h.observer = obs
	return nil
}

// Stop disconnects the observer and releases every bound element.
func (h *Hydrator) Stop() {
	if h.observer != nil {
		h.observer.Disconnect()
		h.observer = nil
	}

	h.mu.Lock()
	recs := make([]*record, 0, len(h.arena))
	for _, r := range h.arena {
		recs = append(recs, r)
	}
	h.arena = make(map[dom.NodeID]*record)
	h.mu.Unlock()

	for _, r := range recs {
		h.dispose(r)
	}
}

// Policy returns the configured error policy.
func (h *Hydrator) Policy() ErrorPolicy { return h.policy }

// Stats returns a snapshot of the counters.
func (h *Hydrator) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.stats
	s.Live = len(h.arena)
	return s
}

// Bound reports whether the element with id holds live resources.
func (h *Hydrator) Bound(id dom.NodeID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.arena[id]
	return ok
}

func (h *Hydrator) onMutations(records []dom.MutationRecord, _ *dom.MutationObserver) {
	_, span := h.tracer.Start(context.Background(), "refx.hydrate.batch",
		trace.WithAttributes(attribute.Int("refx.records", len(records))))
	defer span.End()

	resolved := 0
	for _, rec := range records {
		for _, n := range rec.RemovedNodes {
			if !n.IsConnected() {
				h.release(n)
			}
		}
		for _, n := range rec.AddedNodes {
			if n.IsConnected() {
				resolved += h.hydrateTree(n)
			}
		}
	}
	span.SetAttributes(attribute.Int("refx.bindings", resolved))
}

// HydrateTree resolves every marker in node's subtree, including node
// itself, without waiting for a mutation record. It returns the number of
// bindings resolved.
func (h *Hydrator) HydrateTree(node *dom.Node) int {
	_, span := h.tracer.Start(context.Background(), "refx.hydrate.tree")
	defer span.End()

	n := h.hydrateTree(node)
	span.SetAttributes(attribute.Int("refx.bindings", n))
	return n
}

func (h *Hydrator) hydrateTree(root *dom.Node) int {
	var elems []*dom.Node
	root.Walk(func(n *dom.Node) bool {
		if n.IsElement() {
			elems = append(elems, n)
		}
		return true
	})

	total := 0
	for _, el := range elems {
		// An earlier innerHTML binding may have replaced this element.
		if !root.Contains(el) {
			continue
		}
		total += h.hydrateElement(el)
	}
	return total
}

// hydrateElement resolves the markers on el and strips them.
func (h *Hydrator) hydrateElement(el *dom.Node) int {
	var (
		markers []binding.Marker
		strip   []string
		mount   bool
	)
	for _, a := range el.Attributes() {
		isMarker := binding.IsMarker(a.Value)
		switch {
		case a.Name == resolveAttribute && isMarker:
		case strings.HasPrefix(a.Name, "on") && len(a.Name) > 2 && isMarker:
			if a.Name == "on"+MountEvent {
				mount = true
			}
		default:
			continue
		}
		strip = append(strip, a.Name)
		if m := binding.Marker(a.Value); !slices.Contains(markers, m) {
			markers = append(markers, m)
		}
	}
	if len(markers) == 0 {
		return 0
	}

	rec := h.recordFor(el)
	resolved := 0
	for _, m := range markers {
		pending := h.table.Take(m)
		if len(pending) == 0 {
			h.miss(el, m)
			continue
		}
		for _, p := range pending {
			if h.resolve(el, rec, p) {
				resolved++
			}
		}
	}

	for _, name := range strip {
		el.RemoveAttribute(name)
	}
	h.commit(rec, resolved)

	if mount {
		h.sched.Post(func() {
			if el.IsConnected() {
				el.DispatchEvent(dom.NewEvent(MountEvent, false))
			}
		})
	}
	return resolved
}

var resolveAttribute = strings.ToLower(binding.MarkerAttribute)

func (h *Hydrator) recordFor(el *dom.Node) *record {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.arena[el.ID()]; ok {
		return r
	}
	return &record{node: el}
}

// commit stores rec in the arena once it holds something to release.
func (h *Hydrator) commit(rec *record, resolved int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Elements++
	h.stats.Bindings += resolved
	if len(rec.disposers) > 0 || len(rec.cursors) > 0 || rec.events > 0 {
		h.arena[rec.node.ID()] = rec
	}
}

func (h *Hydrator) miss(el *dom.Node, m binding.Marker) {
	err := errors.New("E140").WithDetailf("marker %s on <%s>", m, el.Tag())
	h.logger.Debug("hydration miss", "marker", m.String(), "error", err)

	h.mu.Lock()
	h.stats.Misses++
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.HydrationMiss()
	}
}

// resolve attaches one pending binding to el.
func (h *Hydrator) resolve(el *dom.Node, rec *record, p binding.Pending) bool {
	if p.Kind == binding.KindEvent {
		return h.bindEvent(el, rec, p)
	}

	setter, err := h.sinks.Bind(p.Kind, el, p.Name)
	if err != nil {
		h.report(el, p, errors.New("E141").WithDetailf("%s on <%s>", p.Kind, el.Tag()).Wrap(err))
		return false
	}

	b := &live{}
	obs := source.Observer{
		Next: setter,
		Error: func(err error) {
			var se *source.SinkError
			if stderrors.As(err, &se) {
				h.sinkError(el, p, se)
				return
			}
			h.sourceError(el, p, err)
			if h.policy == PolicyDetach {
				b.detach()
			}
		},
	}
	d, err := source.Subscribe(p.Source, obs)
	if err != nil {
		h.report(el, p, errors.New("E160").WithDetailf("%s binding with %s source", p.Kind, p.Source.Kind()).Wrap(err))
		return false
	}
	b.attach(d)
	rec.disposers = append(rec.disposers, b.detach)
	h.resolved(p)
	return true
}

// live holds a subscription's disposer, which may be requested before
// Subscribe has returned it.
type live struct {
	dispose  source.Disposer
	detached bool
}

func (b *live) attach(d source.Disposer) {
	if b.detached {
		d()
		return
	}
	b.dispose = d
}

func (b *live) detach() {
	b.detached = true
	if d := b.dispose; d != nil {
		b.dispose = nil
		d()
	}
}

func (h *Hydrator) bindEvent(el *dom.Node, rec *record, p binding.Pending) bool {
	handler := events.Handler{Event: p.Name}

	switch p.Source.Kind() {
	case source.KindSequence:
		cur := source.NewCursor(p.Source.Sequence())
		rec.cursors = append(rec.cursors, cur)
		handler.Sequence = true
		handler.Invoke = func(*dom.Event) (bool, error) {
			v, ok := cur.Pull()
			if !ok {
				return false, nil
			}
			return source.Truthy(v), nil
		}

	case source.KindCallable:
		src := p.Source
		handler.Invoke = func(ev *dom.Event) (bool, error) {
			v, err := src.Invoke(ev)
			if err != nil {
				if fn := src.ErrorHandler(); fn != nil {
					fn(err)
					return false, nil
				}
				return false, err
			}
			return source.Truthy(v), nil
		}

	default:
		h.report(el, p, errors.New("E160").WithDetailf("event %q bound to a %s source", p.Name, p.Source.Kind()))
		return false
	}

	h.delegator.Bind(el, handler, p.NonBubbling)
	rec.events++
	h.resolved(p)
	return true
}

func (h *Hydrator) resolved(p binding.Pending) {
	if h.metrics != nil {
		h.metrics.BindingResolved(p.Kind.String())
	}
}

// sourceError routes an error reported by a binding's source.
func (h *Hydrator) sourceError(el *dom.Node, p binding.Pending, err error) {
	h.count(p)
	if fn := p.Source.ErrorHandler(); fn != nil {
		fn(err)
		return
	}
	h.logger.Debug("source error",
		"code", "E161",
		"kind", p.Kind.String(),
		"marker", p.Marker.String(),
		"node", el.ID(),
		"policy", h.policy.String(),
		"error", err)
}

// sinkError logs a DOM mutation that failed with no emitter to return it
// to. It is not a source failure, so the error policy does not apply.
func (h *Hydrator) sinkError(el *dom.Node, p binding.Pending, err *source.SinkError) {
	h.logger.Warn("sink error",
		"kind", p.Kind.String(),
		"marker", p.Marker.String(),
		"node", el.ID(),
		"error", err.Err)
}

// report logs a binding that could not be resolved.
func (h *Hydrator) report(el *dom.Node, p binding.Pending, err *errors.RefxError) {
	h.count(p)
	if fn := p.Source.ErrorHandler(); fn != nil {
		fn(err)
	}
	h.logger.Warn("binding not resolved",
		"code", err.Code,
		"marker", p.Marker.String(),
		"node", el.ID(),
		"error", err)
}

func (h *Hydrator) count(p binding.Pending) {
	h.mu.Lock()
	h.stats.Errors++
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SourceError(p.Kind.String())
	}
}

// release disposes the arena records of every element under n.
func (h *Hydrator) release(n *dom.Node) {
	var recs []*record
	h.mu.Lock()
	n.Walk(func(c *dom.Node) bool {
		if r, ok := h.arena[c.ID()]; ok {
			recs = append(recs, r)
			delete(h.arena, c.ID())
		}
		return true
	})
	h.stats.Released += len(recs)
	h.mu.Unlock()

	for _, r := range recs {
		h.dispose(r)
	}
	if len(recs) > 0 {
		h.logger.Debug("bound nodes released", "count", len(recs))
		if h.metrics != nil {
			h.metrics.NodesReleased(len(recs))
		}
	}
}

func (h *Hydrator) dispose(r *record) {
	for _, d := range r.disposers {
		d()
	}
	for _, c := range r.cursors {
		c.Stop()
	}
	if r.events > 0 {
		h.delegator.Release(r.node.ID())
	}
}
