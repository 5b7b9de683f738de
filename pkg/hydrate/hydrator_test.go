package hydrate

import (
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/refx/pkg/binding"
	"github.com/vango-dev/refx/pkg/dom"
	"github.com/vango-dev/refx/pkg/events"
	"github.com/vango-dev/refx/pkg/loop"
	"github.com/vango-dev/refx/pkg/sink"
	"github.com/vango-dev/refx/pkg/source"
	"github.com/vango-dev/refx/pkg/template"
)

type harness struct {
	t         *testing.T
	loop      *loop.Loop
	doc       *dom.Document
	table     *binding.Table
	compiler  *template.Compiler
	delegator *events.Delegator
	hydrator  *Hydrator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	lp := loop.New()
	doc := dom.NewDocument(lp)
	table := binding.NewTable()
	del := events.New(doc.Root())
	h := &harness{
		t:         t,
		loop:      lp,
		doc:       doc,
		table:     table,
		compiler:  template.New(table, binding.NewMarkerGenerator()),
		delegator: del,
		hydrator:  New(doc, table, sink.Default(), del, lp, opts...),
	}
	if err := h.hydrator.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(h.hydrator.Stop)
	return h
}

// mount compiles parts into the body and runs the loop to idle.
func (h *harness) mount(parts ...any) *dom.Node {
	h.t.Helper()
	markup, err := h.compiler.HTML(parts...)
	if err != nil {
		h.t.Fatalf("HTML() error = %v", err)
	}
	body := h.doc.Body()
	if err := body.SetInnerHTML(markup); err != nil {
		h.t.Fatalf("SetInnerHTML() error = %v", err)
	}
	h.loop.RunUntilIdle()
	return body
}

func TestCounterButton(t *testing.T) {
	h := newHarness(t)
	count := source.NewSignal(0)
	inc := func(*dom.Event) any {
		if err := count.Update(func(n int) int { return n + 1 }); err != nil {
			t.Errorf("Update() error = %v", err)
		}
		return nil
	}

	body := h.mount(`<button onclick="`, inc, `">`, count, `</button>`)
	if got := body.InnerHTML(); got != `<button>0</button>` {
		t.Fatalf("after mount = %q", got)
	}

	btn := body.FirstChild()
	for range 3 {
		btn.Click()
	}
	h.loop.RunUntilIdle()

	if got := body.InnerHTML(); got != `<button>3</button>` {
		t.Errorf("after clicks = %q", got)
	}
	if got := h.delegator.Listeners(); !cmp.Equal(got, []string{"click"}) {
		t.Errorf("Listeners() = %v", got)
	}
	if h.table.Len() != 0 {
		t.Errorf("pending table not drained: %v", h.table.Markers())
	}
}

func TestInnerHTMLReplacesChildren(t *testing.T) {
	h := newHarness(t)
	items := source.NewSignal[any](`<li>a</li><li>b</li>`)

	body := h.mount(`<ul>`, items, `</ul>`)
	ul := body.FirstChild()
	if got := ul.ChildCount(); got != 2 {
		t.Fatalf("ChildCount() = %d, want 2", got)
	}

	if err := items.Set(`<li>c</li>`); err != nil {
		t.Fatal(err)
	}
	if got := ul.InnerHTML(); got != `<li>c</li>` {
		t.Errorf("InnerHTML() = %q, want full replace", got)
	}
}

func TestSharedMarker(t *testing.T) {
	h := newHarness(t)
	cls := source.NewSignal("a")
	x := source.NewSignal(1)

	body := h.mount(`<input class="`, cls, `" data-x="`, x, `">`)
	if got := body.InnerHTML(); got != `<input class="a" data-x="1">` {
		t.Fatalf("markup = %q", got)
	}

	if err := x.Set(2); err != nil {
		t.Fatal(err)
	}
	if v, _ := body.FirstChild().DatasetValue("x"); v != "2" {
		t.Errorf("data-x = %q, want 2", v)
	}
	if s := h.hydrator.Stats(); s.Elements != 1 || s.Bindings != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestNestedTemplateHydrates(t *testing.T) {
	h := newHarness(t)
	content := source.NewSignal[any]("")
	body := h.mount(`<section>`, content, `</section>`)

	label := source.NewSignal("first")
	inner, err := h.compiler.HTML(`<span title="`, label, `">x</span>`)
	if err != nil {
		t.Fatal(err)
	}
	if err := content.Set(inner); err != nil {
		t.Fatal(err)
	}
	h.loop.RunUntilIdle()

	span := body.FirstChild().FirstChild()
	if got, _ := span.GetAttribute("title"); got != "first" {
		t.Fatalf("title = %q", got)
	}
	if span.HasAttribute(binding.MarkerAttribute) {
		t.Error("marker attribute not stripped")
	}

	if err := label.Set("second"); err != nil {
		t.Fatal(err)
	}
	if got, _ := span.GetAttribute("title"); got != "second" {
		t.Errorf("title = %q", got)
	}
}

func TestRemovalReleasesResources(t *testing.T) {
	h := newHarness(t)
	cls := source.NewSignal("on")
	click := func(*dom.Event) any { return nil }

	body := h.mount(`<div class="`, cls, `" onclick="`, click, `">x</div>`)
	id := body.FirstChild().ID()
	if !h.hydrator.Bound(id) || cls.Subscribers() != 1 {
		t.Fatalf("not bound: Bound=%v subscribers=%d", h.hydrator.Bound(id), cls.Subscribers())
	}

	if err := body.SetInnerHTML(""); err != nil {
		t.Fatal(err)
	}
	h.loop.RunUntilIdle()

	if h.hydrator.Bound(id) {
		t.Error("record kept after removal")
	}
	if n := cls.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
	if hs := h.delegator.Handlers(id); len(hs) != 0 {
		t.Errorf("Handlers() = %d, want 0", len(hs))
	}
	if s := h.hydrator.Stats(); s.Released != 1 || s.Live != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestMovedNodeStaysBound(t *testing.T) {
	h := newHarness(t)
	cls := source.NewSignal("on")
	body := h.mount(`<div><p class="`, cls, `"></p></div><div></div>`)

	p := body.FirstChild().FirstChild()
	dest := body.LastChild()
	if err := dest.AppendChild(p); err != nil {
		t.Fatal(err)
	}
	h.loop.RunUntilIdle()

	if !h.hydrator.Bound(p.ID()) || cls.Subscribers() != 1 {
		t.Error("moved node lost its bindings")
	}
}

func TestHydrationMiss(t *testing.T) {
	h := newHarness(t)
	m := &fakeMetrics{}
	h.hydrator.metrics = m

	body := h.doc.Body()
	if err := body.SetInnerHTML(`<p RESOLVE="#REF99">x</p>`); err != nil {
		t.Fatal(err)
	}
	h.loop.RunUntilIdle()

	if got := body.InnerHTML(); got != `<p>x</p>` {
		t.Errorf("markup = %q", got)
	}
	if s := h.hydrator.Stats(); s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if m.misses != 1 {
		t.Errorf("metrics misses = %d", m.misses)
	}
}

func TestMountEvent(t *testing.T) {
	h := newHarness(t)
	var seen []*dom.Event
	onMount := func(ev *dom.Event) any {
		seen = append(seen, ev)
		return nil
	}

	markup, err := h.compiler.HTML(`<div onmount="`, onMount, `"></div>`)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.doc.Body().SetInnerHTML(markup); err != nil {
		t.Fatal(err)
	}

	h.loop.DrainMicrotasks()
	if len(seen) != 0 {
		t.Fatal("mount fired before the next task")
	}

	h.loop.RunUntilIdle()
	if len(seen) != 1 {
		t.Fatalf("mount fired %d times, want 1", len(seen))
	}
	if seen[0].Bubbles || seen[0].Type != MountEvent {
		t.Errorf("event = %+v", seen[0])
	}
	if h.doc.Root().ListenerCount(MountEvent) != 0 {
		t.Error("mount must not be delegated")
	}
}

func TestSequenceEventPullsOncePerClick(t *testing.T) {
	h := newHarness(t)
	body := h.mount(`<a onclick="`, source.Values(true, false), `">x</a>`)
	a := body.FirstChild()

	var got []bool
	for range 3 {
		got = append(got, a.Click().Handled())
	}
	if diff := cmp.Diff([]bool{true, false, false}, got); diff != "" {
		t.Errorf("handled mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceSinkAdvancesOnTrigger(t *testing.T) {
	h := newHarness(t)
	tick := source.NewSubject()
	body := h.mount(`<p>`, source.LazyOn(source.Values("a", "b", "c"), tick), `</p>`)
	p := body.FirstChild()

	if got := p.TextContent(); got != "a" {
		t.Fatalf("after hydration = %q, want a", got)
	}
	for _, want := range []string{"b", "c", "c"} {
		if err := tick.Next(nil); err != nil {
			t.Fatal(err)
		}
		if got := p.TextContent(); got != want {
			t.Fatalf("after trigger = %q, want %q", got, want)
		}
	}
}

func TestInfiniteSequenceSinkLeavesLoopIdle(t *testing.T) {
	h := newHarness(t)
	endless := iter.Seq[any](func(yield func(any) bool) {
		for i := 0; ; i++ {
			if !yield(i) {
				return
			}
		}
	})
	body := h.mount(`<p>`, endless, `</p>`)

	if got := body.FirstChild().TextContent(); got != "0" {
		t.Errorf("text = %q, want 0", got)
	}
	if tasks, micro := h.loop.Pending(); tasks+micro != 0 || h.loop.RunUntilIdle() != 0 {
		t.Error("an untriggered sequence must not keep the loop busy")
	}
}

func TestDeferredSource(t *testing.T) {
	h := newHarness(t)
	fut := source.NewFuture(h.loop)
	body := h.mount(`<span>`, fut, `</span>`)

	if got := body.FirstChild().TextContent(); got != "" {
		t.Fatalf("before settle = %q", got)
	}
	fut.Resolve("done")
	h.loop.RunUntilIdle()
	if got := body.FirstChild().TextContent(); got != "done" {
		t.Errorf("after settle = %q", got)
	}
}

func TestSinkErrorReturnsToEmitter(t *testing.T) {
	h := newHarness(t)
	attrs := source.NewSignal[any](map[string]any{"id": "a"})
	h.mount(`<div `, attrs, `></div>`)

	err := attrs.Set(map[string]any{"bad name": "x"})
	if !errors.Is(err, dom.ErrInvalidAttributeName) {
		t.Errorf("Set() error = %v, want ErrInvalidAttributeName", err)
	}
}

func TestErrorPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   ErrorPolicy
		disposed bool
	}{
		{"ignore keeps binding", PolicyIgnore, false},
		{"detach disposes binding", PolicyDetach, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, WithErrorPolicy(tt.policy))
			src := &flaky{}
			h.mount(`<b>`, source.Push(src), `</b>`)

			src.fail(errors.New("boom"))
			if src.disposed != tt.disposed {
				t.Errorf("disposed = %v, want %v", src.disposed, tt.disposed)
			}
			if s := h.hydrator.Stats(); s.Errors != 1 {
				t.Errorf("Errors = %d, want 1", s.Errors)
			}
		})
	}
}

func TestInitialSinkErrorSkipsPolicy(t *testing.T) {
	h := newHarness(t, WithErrorPolicy(PolicyDetach))
	attrs := source.NewSignal[any](map[string]any{"bad name": "x"})
	body := h.mount(`<div `, attrs, `></div>`)

	if s := h.hydrator.Stats(); s.Errors != 0 {
		t.Errorf("Errors = %d, sink errors are not source errors", s.Errors)
	}
	if err := attrs.Set(map[string]any{"title": "ok"}); err != nil {
		t.Fatal(err)
	}
	if got := body.InnerHTML(); got != `<div title="ok"></div>` {
		t.Errorf("binding should survive a sink error, got %q", got)
	}
}

func TestOnErrorCallback(t *testing.T) {
	h := newHarness(t)
	src := &flaky{}
	var got error
	h.mount(`<b>`, source.Push(src).OnError(func(err error) { got = err }), `</b>`)

	want := errors.New("boom")
	src.fail(want)
	if got != want {
		t.Errorf("OnError received %v, want %v", got, want)
	}
}

func TestHydrateTreeWithoutObserver(t *testing.T) {
	lp := loop.New()
	doc := dom.NewDocument(lp)
	table := binding.NewTable()
	c := template.New(table, binding.NewMarkerGenerator())
	hyd := New(doc, table, sink.Default(), events.New(doc.Root()), lp)

	title := source.NewSignal("t")
	markup, err := c.HTML(`<p title="`, title, `"></p>`)
	if err != nil {
		t.Fatal(err)
	}
	el := doc.CreateElement("div")
	if err := el.SetInnerHTML(markup); err != nil {
		t.Fatal(err)
	}

	if n := hyd.HydrateTree(el); n != 1 {
		t.Fatalf("HydrateTree() = %d, want 1", n)
	}
	if got := el.InnerHTML(); got != `<p title="t"></p>` {
		t.Errorf("markup = %q", got)
	}
	if n := hyd.HydrateTree(el); n != 0 {
		t.Errorf("second HydrateTree() = %d, want 0", n)
	}
}

func TestParseErrorPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ErrorPolicy
		wantErr bool
	}{
		{"", PolicyIgnore, false},
		{"ignore", PolicyIgnore, false},
		{"Detach", PolicyDetach, false},
		{"terminate", PolicyIgnore, true},
	}
	for _, tt := range tests {
		got, err := ParseErrorPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseErrorPolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}

// flaky is a push source that can report an error on demand.
type flaky struct {
	mu       sync.Mutex
	obs      source.Observer
	disposed bool
}

func (f *flaky) Subscribe(obs source.Observer) source.Disposer {
	f.mu.Lock()
	f.obs = obs
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.disposed = true
		f.mu.Unlock()
	}
}

func (f *flaky) fail(err error) {
	f.mu.Lock()
	obs := f.obs
	f.mu.Unlock()
	if obs.Error != nil {
		obs.Error(err)
	}
}

type fakeMetrics struct {
	resolved map[string]int
	misses   int
	errors   int
	released int
}

func (m *fakeMetrics) BindingResolved(kind string) {
	if m.resolved == nil {
		m.resolved = make(map[string]int)
	}
	m.resolved[kind]++
}
func (m *fakeMetrics) HydrationMiss() { m.misses++ }
func (m *fakeMetrics) SourceError(string) { m.errors++ }
func (m *fakeMetrics) NodesReleased(n int) { m.released += n }
