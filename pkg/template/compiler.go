// Package template compiles literal markup with interpolated values into a
// marker-annotated markup string and a set of pending bindings.
//
// Each value is classified by where it sits in the markup: an event attribute,
// an attribute value, between attributes, or the content of an element. The
// scanner tracks that context incrementally, so classification never looks
// back over the accumulated output.
package template

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"

	"github.com/vango-dev/refx/internal/errors"
	"github.com/vango-dev/refx/pkg/binding"
)

// DefaultNonBubbling lists the event names that do not bubble and therefore
// get a direct listener instead of delegation.
var DefaultNonBubbling = []string{
	"ended", "play", "pause", "volumechange",
	"load", "error", "scroll",
	"focus", "blur",
	"mouseenter", "mouseleave",
	"mount",
}

// Sentinel errors matched by code with errors.Is.
var (
	ErrArity        = errors.New("E100")
	ErrUnclassified = errors.New("E101")
	ErrNoElement    = errors.New("E102")
	ErrUnknownKind  = errors.New("E103")
	ErrMarkerReuse  = errors.New("E104")
)

// Site describes how one interpolated value was handled.
type Site struct {
	// Index is the 1-based position of the value.
	Index  int
	Action Action
	Kind   binding.Kind
	Name   string
	Marker binding.Marker
	Inert  bool
}

// Result is a compiled template.
type Result struct {
	Markup   string
	Bindings []binding.Pending
	Sites    []Site
}

// Compiler turns templates into markup and pending bindings. It is safe for
// concurrent use; the table and generator serialize access themselves.
type Compiler struct {
	table       *binding.Table
	markers     *binding.MarkerGenerator
	nonBubbling map[string]bool
	logger      *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// mountEvent is dispatched at its target only, so it is never delegated.
const mountEvent = "mount"

// WithNonBubbling replaces the set of non-bubbling event names. mount is
// always kept in the set.
func WithNonBubbling(names ...string) Option {
	return func(c *Compiler) {
		c.nonBubbling = make(map[string]bool, len(names)+1)
		for _, n := range names {
			c.nonBubbling[strings.ToLower(n)] = true
		}
		c.nonBubbling[mountEvent] = true
	}
}

// WithLogger sets the compiler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a compiler that records pending bindings in table and issues
// markers from markers.
func New(table *binding.Table, markers *binding.MarkerGenerator, opts ...Option) *Compiler {
	c := &Compiler{
		table:   table,
		markers: markers,
		logger:  slog.Default().With("component", "template"),
	}
	WithNonBubbling(DefaultNonBubbling...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NonBubbling reports whether event is in the non-bubbling set.
func (c *Compiler) NonBubbling(event string) bool {
	return c.nonBubbling[strings.ToLower(event)]
}

// Compile compiles literals and values and returns the markup. literals must
// hold exactly one more element than values.
func (c *Compiler) Compile(literals []string, values []any) (string, error) {
	res, err := c.CompileResult(literals, values)
	if err != nil {
		return "", err
	}
	return res.Markup, nil
}

// HTML compiles alternating literal strings and values:
//
//	c.HTML(`<button onclick="`, inc, `">`, count, `</button>`)
func (c *Compiler) HTML(parts ...any) (string, error) {
	literals, values, err := Split(parts...)
	if err != nil {
		return "", err
	}
	return c.Compile(literals, values)
}

// Split separates alternating literals and values. Even positions must be
// strings and the sequence must start and end with a literal.
func Split(parts ...any) ([]string, []any, error) {
	if len(parts)%2 == 0 {
		return nil, nil, errors.New("E100").
			WithDetailf("%d parts; templates alternate literals and values and start and end with a literal", len(parts))
	}
	literals := make([]string, 0, len(parts)/2+1)
	values := make([]any, 0, len(parts)/2)
	for i, p := range parts {
		if i%2 == 1 {
			values = append(values, p)
			continue
		}
		s, ok := p.(string)
		if !ok {
			return nil, nil, errors.New("E100").WithDetailf("part %d is %T, want a literal string", i, p)
		}
		literals = append(literals, s)
	}
	return literals, values, nil
}

// CompileResult compiles and returns the markup together with the bindings
// and a per-value report. Bindings reach the table only when the whole
// template compiles.
func (c *Compiler) CompileResult(literals []string, values []any) (*Result, error) {
	if len(literals) != len(values)+1 {
		return nil, errors.New("E100").
			WithDetailf("%d literals for %d values", len(literals), len(values))
	}

	w := &writer{sc: NewScanner()}
	res := &Result{}

	w.emit(literals[0])
	for i, v := range values {
		next := literals[i+1]

		if n := w.sc.TrimSpread(); n > 0 {
			w.out = w.out[:len(w.out)-n]
		}

		ctx := w.sc.Context(w.tail())
		d := Classify(ctx, v, next)
		site := Site{Index: i + 1, Action: d.Action, Kind: d.Kind, Name: d.Name, Inert: d.Inert}

		switch d.Action {
		case ActionError:
			return nil, errors.New(d.Code).WithSite(i + 1).WithDetail(d.Reason)

		case ActionInline:
			w.emit(d.Text)

		case ActionBind:
			m, err := c.bind(w, ctx, d)
			if err != nil {
				return nil, err.WithSite(i + 1)
			}
			site.Marker = m
			res.Bindings = append(res.Bindings, binding.Pending{
				Marker:      m,
				Kind:        d.Kind,
				Name:        d.Name,
				Source:      d.Source,
				NonBubbling: d.Kind == binding.KindEvent && c.nonBubbling[d.Name],
			})
		}

		res.Sites = append(res.Sites, site)
		w.emit(next)
	}

	for _, p := range res.Bindings {
		c.table.Add(p)
	}
	res.Markup = string(w.out)

	c.logger.Debug("template compiled",
		"values", len(values),
		"bindings", len(res.Bindings))
	return res, nil
}

// bind allocates or reuses the target element's marker and writes it into
// the output.
func (c *Compiler) bind(w *writer, ctx Context, d Decision) (binding.Marker, *errors.RefxError) {
	el := w.sc.target()
	if el == nil || el.nameEnd == 0 {
		return "", errors.New("E104").WithDetailf("no element to carry a marker in %s state", ctx.State)
	}

	fresh := el.marker == ""
	if fresh {
		el.marker = c.markers.Next()
	}
	m := el.marker

	if d.Kind == binding.KindEvent {
		if ctx.State == StateBeforeAttrValue {
			w.emit(`"` + string(m) + `"`)
		} else {
			w.emit(string(m))
		}
		return m, nil
	}

	if fresh {
		w.insert(el.nameEnd, " "+binding.MarkerAttribute+`="`+string(m)+`"`)
	}
	if ctx.State == StateBeforeAttrValue {
		w.emit(`""`)
	}
	return m, nil
}

// writer couples the output buffer with the scanner reading it.
type writer struct {
	out []byte
	sc  *Scanner
}

func (w *writer) emit(s string) {
	w.out = append(w.out, s...)
	w.sc.Feed(s)
}

// tail returns the output from the last '>' on, which is all Context
// inspects.
func (w *writer) tail() string {
	i := max(bytes.LastIndexByte(w.out, '>'), 0)
	return string(w.out[i:])
}

// insert splices s into already scanned output at offset at.
func (w *writer) insert(at int, s string) {
	w.out = slices.Insert(w.out, at, []byte(s)...)
	w.sc.shift(at, len(s))
}
