package events

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vango-dev/refx/pkg/dom"
	"github.com/vango-dev/refx/pkg/loop"
)

func setup(t *testing.T, markup string) (*dom.Document, *Delegator) {
	t.Helper()
	doc := dom.NewDocument(loop.New())
	if err := doc.Body().SetInnerHTML(markup); err != nil {
		t.Fatal(err)
	}
	return doc, New(doc.Root())
}

func handler(event string, result bool, calls *int) Handler {
	return Handler{Event: event, Invoke: func(*dom.Event) (bool, error) {
		*calls++
		return result, nil
	}}
}

func TestDelegatesToNearestAncestor(t *testing.T) {
	doc, d := setup(t, `<div id="outer"><div id="inner"><span id="leaf">x</span></div></div>`)
	outer, inner, leaf := doc.ElementByID("outer"), doc.ElementByID("inner"), doc.ElementByID("leaf")

	var outerCalls, innerCalls int
	d.Bind(outer, handler("click", true, &outerCalls), false)
	d.Bind(inner, handler("click", false, &innerCalls), false)

	ev := leaf.Click()
	if innerCalls != 1 || outerCalls != 0 {
		t.Errorf("inner=%d outer=%d, want 1 and 0", innerCalls, outerCalls)
	}
	if ev.Handled() {
		t.Error("a false result should not mark the event handled")
	}

	outer.Click()
	if outerCalls != 1 {
		t.Errorf("outer=%d, want 1", outerCalls)
	}
}

func TestSkipsNodesWithoutMatchingEvent(t *testing.T) {
	doc, d := setup(t, `<div id="outer"><button id="btn">x</button></div>`)
	var clicks, inputs int
	d.Bind(doc.ElementByID("outer"), handler("click", true, &clicks), false)
	d.Bind(doc.ElementByID("btn"), handler("input", true, &inputs), false)

	ev := doc.ElementByID("btn").Click()
	if clicks != 1 || inputs != 0 {
		t.Errorf("clicks=%d inputs=%d", clicks, inputs)
	}
	if !ev.Handled() {
		t.Error("event should be handled")
	}
}

func TestHandledIsOrOfResults(t *testing.T) {
	doc, d := setup(t, `<button id="btn">x</button>`)
	btn := doc.ElementByID("btn")
	var a, b int
	d.Bind(btn, handler("click", false, &a), false)
	d.Bind(btn, handler("click", true, &b), false)

	ev := btn.Click()
	if a != 1 || b != 1 {
		t.Errorf("a=%d b=%d, want both to run", a, b)
	}
	if !ev.Handled() {
		t.Error("OR of results should mark the event handled")
	}
}

func TestOneListenerPerEventName(t *testing.T) {
	doc := dom.NewDocument(loop.New())
	d := New(doc.Root())

	const n = 10000
	calls := 0
	buttons := make([]*dom.Node, n)
	for i := range buttons {
		btn := doc.CreateElement("button")
		_ = doc.Body().AppendChild(btn)
		buttons[i] = btn
		event := "click"
		if i%2 == 1 {
			event = "input"
		}
		d.Bind(btn, handler(event, true, &calls), false)
	}

	if got := doc.Root().ListenerCount("click"); got != 1 {
		t.Errorf("root click listeners = %d, want 1", got)
	}
	if got := doc.Root().ListenerCount("input"); got != 1 {
		t.Errorf("root input listeners = %d, want 1", got)
	}
	if d.ListenerCount() != 2 {
		t.Errorf("ListenerCount() = %d, want 2", d.ListenerCount())
	}
	if fmt.Sprint(d.Listeners()) != "[click input]" {
		t.Errorf("Listeners() = %v", d.Listeners())
	}

	buttons[n-2].Click()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestNonBubblingGetsDirectListener(t *testing.T) {
	doc, d := setup(t, `<video id="v"></video>`)
	v := doc.ElementByID("v")
	calls := 0
	d.Bind(v, handler("ended", true, &calls), true)

	if doc.Root().ListenerCount("ended") != 0 {
		t.Error("non-bubbling events should not install a root listener")
	}
	if v.ListenerCount("ended") != 1 {
		t.Fatalf("direct listeners = %d, want 1", v.ListenerCount("ended"))
	}

	ev := dom.NewEvent("ended", false)
	v.DispatchEvent(ev)
	if calls != 1 || !ev.Handled() {
		t.Errorf("calls=%d handled=%v", calls, ev.Handled())
	}
}

func TestRelease(t *testing.T) {
	doc, d := setup(t, `<button id="btn">x</button><video id="v"></video>`)
	btn, v := doc.ElementByID("btn"), doc.ElementByID("v")
	calls := 0
	d.Bind(btn, handler("click", true, &calls), false)
	d.Bind(v, handler("pause", true, &calls), true)
	if d.Nodes() != 2 {
		t.Fatalf("Nodes() = %d, want 2", d.Nodes())
	}

	if n := d.Release(btn.ID()); n != 1 {
		t.Errorf("Release(btn) = %d", n)
	}
	if n := d.Release(v.ID()); n != 1 {
		t.Errorf("Release(v) = %d", n)
	}
	btn.Click()
	v.DispatchEvent(dom.NewEvent("pause", false))

	if calls != 0 {
		t.Errorf("released handlers still ran %d times", calls)
	}
	if d.Nodes() != 0 || v.ListenerCount("pause") != 0 {
		t.Error("Release left records behind")
	}
	if len(d.Handlers(btn.ID())) != 0 {
		t.Error("Handlers() should be empty after Release")
	}
}

func TestHandlerErrors(t *testing.T) {
	doc := dom.NewDocument(loop.New())
	boom := errors.New("boom")
	var got error
	d := New(doc.Root(), WithErrorHandler(func(_ *dom.Node, _ Handler, err error) { got = err }))

	btn := doc.CreateElement("button")
	_ = doc.Body().AppendChild(btn)
	d.Bind(btn, Handler{Event: "click", Invoke: func(*dom.Event) (bool, error) {
		return false, boom
	}}, false)
	btn.Click()

	if got != boom {
		t.Errorf("error = %v, want %v", got, boom)
	}
}

func TestDispatchHookAndClose(t *testing.T) {
	doc := dom.NewDocument(loop.New())
	var hooked []string
	d := New(doc.Root(), WithDispatchHook(func(event string, handled bool) {
		hooked = append(hooked, fmt.Sprintf("%s:%v", event, handled))
	}))
	btn := doc.CreateElement("button")
	_ = doc.Body().AppendChild(btn)
	calls := 0
	d.Bind(btn, handler("click", true, &calls), false)

	btn.Click()
	d.Close()
	btn.Click()

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if fmt.Sprint(hooked) != "[click:true]" {
		t.Errorf("hook calls = %v", hooked)
	}
	if doc.Root().ListenerCount("click") != 0 || d.ListenerCount() != 0 {
		t.Error("Close should remove root listeners")
	}
}
