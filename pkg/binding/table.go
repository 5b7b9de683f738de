package binding

import (
	"sync"

	"github.com/vango-dev/refx/pkg/source"
)

// Pending is a binding recorded at compile time and waiting for its element
// to appear in the document.
type Pending struct {
	Marker Marker
	Kind   Kind

	// Name is the event name, attribute name or dataset key.
	Name   string
	Source source.Source

	// NonBubbling asks for a direct listener instead of delegation.
	NonBubbling bool
}

// IsLazySequence reports whether the binding's source is pull based.
func (p Pending) IsLazySequence() bool { return p.Source.IsLazySequence() }

// Table holds pending bindings keyed by marker in insertion order.
// Consumed markers leave a stale slot in the order, compacted once stale
// slots outnumber live ones, so Take stays constant time.
type Table struct {
	mu      sync.Mutex
	entries map[Marker]*slot
	order   []ordered
	seq     uint64
	stale   int
}

type slot struct {
	seq      uint64
	bindings []Pending
}

type ordered struct {
	marker Marker
	seq    uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Marker]*slot)}
}

// Add appends p under its marker.
func (t *Table) Add(p Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[p.Marker]
	if !ok {
		t.seq++
		s = &slot{seq: t.seq}
		t.entries[p.Marker] = s
		t.order = append(t.order, ordered{marker: p.Marker, seq: s.seq})
	}
	s.bindings = append(s.bindings, p)
}

// Take removes and returns the bindings for m, in registration order.
// A second Take for the same marker returns nothing.
func (t *Table) Take(m Marker) []Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[m]
	if !ok {
		return nil
	}
	delete(t.entries, m)
	t.stale++
	if t.stale > len(t.entries) {
		t.compact()
	}
	return s.bindings
}

func (t *Table) live(o ordered) bool {
	s, ok := t.entries[o.marker]
	return ok && s.seq == o.seq
}

func (t *Table) compact() {
	kept := t.order[:0]
	for _, o := range t.order {
		if t.live(o) {
			kept = append(kept, o)
		}
	}
	clear(t.order[len(kept):])
	t.order = kept
	t.stale = 0
}

// Peek returns the bindings for m without consuming them.
func (t *Table) Peek(m Marker) []Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[m]
	if !ok {
		return []Pending{}
	}
	out := make([]Pending, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Has reports whether m has unconsumed bindings.
func (t *Table) Has(m Marker) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[m]
	return ok
}

// Len returns the number of markers with unconsumed bindings.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Markers returns the unconsumed markers in insertion order.
func (t *Table) Markers() []Marker {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Marker, 0, len(t.entries))
	for _, o := range t.order {
		if t.live(o) {
			out = append(out, o.marker)
		}
	}
	return out
}

// Bindings returns every unconsumed binding, grouped by marker in insertion
// order.
func (t *Table) Bindings() []Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Pending
	for _, o := range t.order {
		if t.live(o) {
			out = append(out, t.entries[o.marker].bindings...)
		}
	}
	return out
}

// Clear drops every pending binding.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[Marker]*slot)
	t.order = nil
	t.stale = 0
}
