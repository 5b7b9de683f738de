// Package binding defines markers, binding kinds and the pending-binding
// table shared by the compiler and the hydrator.
package binding

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MarkerAttribute is the synthetic attribute carrying a marker on elements
// without an event binding. The HTML parser lowercases it; attribute lookups
// are case-insensitive.
const MarkerAttribute = "RESOLVE"

// MarkerPrefix starts every marker token.
const MarkerPrefix = "#REF"

// Marker is an opaque token correlating an element in markup with its
// pending bindings.
type Marker string

// String returns the token.
func (m Marker) String() string { return string(m) }

// Seq returns the numeric part of the marker, or 0 if m is not a marker.
func (m Marker) Seq() uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(string(m), MarkerPrefix), 10, 64)
	if err != nil || !IsMarker(string(m)) {
		return 0
	}
	return n
}

// IsMarker reports whether s has the marker wire format #REF<n>.
func IsMarker(s string) bool {
	rest, ok := strings.CutPrefix(s, MarkerPrefix)
	if !ok || rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return true
}

// MarkerGenerator issues monotonically increasing markers.
type MarkerGenerator struct {
	counter uint64
	mu      sync.Mutex
}

// NewMarkerGenerator creates a new MarkerGenerator.
func NewMarkerGenerator() *MarkerGenerator {
	return &MarkerGenerator{}
}

// Next returns the next marker (e.g., "#REF1", "#REF2", ...).
func (g *MarkerGenerator) Next() Marker {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return Marker(fmt.Sprintf("%s%d", MarkerPrefix, g.counter))
}

// Current returns the current counter value without incrementing.
func (g *MarkerGenerator) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
