package template

import (
	"strings"

	"github.com/vango-dev/refx/pkg/binding"
	"github.com/vango-dev/refx/pkg/dom"
)

// State is the scanner's position in the markup grammar.
type State uint8

const (
	StateText State = iota
	StateTagOpen
	StateTagName
	StateBeforeAttrName
	StateAttrName
	StateAfterAttrName
	StateBeforeAttrValue
	StateAttrValueQuoted
	StateAttrValueUnquoted
	StateSelfClosing
	StateEndTag
	StateComment
	StateRawText
)

var stateNames = [...]string{
	StateText:              "text",
	StateTagOpen:           "tag-open",
	StateTagName:           "tag-name",
	StateBeforeAttrName:    "before-attribute-name",
	StateAttrName:          "attribute-name",
	StateAfterAttrName:     "after-attribute-name",
	StateBeforeAttrValue:   "before-attribute-value",
	StateAttrValueQuoted:   "attribute-value-quoted",
	StateAttrValueUnquoted: "attribute-value-unquoted",
	StateSelfClosing:       "self-closing",
	StateEndTag:            "end-tag",
	StateComment:           "comment",
	StateRawText:           "raw-text",
}

// String returns the string representation of the State.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// InTag reports whether the scanner is between a tag name and its '>'.
func (s State) InTag() bool {
	switch s {
	case StateTagName, StateBeforeAttrName, StateAttrName, StateAfterAttrName,
		StateBeforeAttrValue, StateAttrValueQuoted, StateAttrValueUnquoted, StateSelfClosing:
		return true
	}
	return false
}

// element is an open tag or element in the output. nameEnd is the output
// offset right after the tag name, where a marker attribute is inserted.
type element struct {
	tag     string
	nameEnd int
	marker  binding.Marker
}

// Scanner is an incremental markup state machine. It is fed the output as it
// is produced and tracks the innermost open tag, the current attribute and
// the stack of open elements.
type Scanner struct {
	state State

	// Offset of the next byte to be fed.
	pos int

	// Tag being written, valid while state is in-tag.
	tag     *element
	tagName strings.Builder

	attr      strings.Builder
	attrStart int
	attrValue strings.Builder
	quote     byte

	// open is the stack of elements whose start tag has been closed.
	open []*element

	// rawEnd is the end tag that leaves raw text, e.g. "</script".
	rawEnd string

	// commentEnd is "-->" for comments and ">" for doctype and bogus comments.
	commentEnd string
	pending    string // bytes after '<!' not yet classified
}

// NewScanner creates a scanner in the text state.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Context is a snapshot of the scanner used for classification.
type Context struct {
	State State

	// Tag is the tag currently being written, for in-tag states.
	Tag string

	// Attr and AttrValue are the current attribute name and the value
	// written so far. Quote is the value's quote character, 0 if unquoted.
	Attr      string
	AttrValue string
	Quote     byte

	// Element is the innermost open element, empty at top level.
	Element string

	// EndsTag reports that the output, ignoring trailing whitespace, ends
	// with '>'.
	EndsTag bool

	// TrailingText reports that non-whitespace text follows the last tag.
	TrailingText bool
}

// Context returns the current classification context for output out, which
// is everything fed so far or any suffix of it starting at or before the
// last '>'.
func (s *Scanner) Context(out string) Context {
	ctx := Context{State: s.state, Quote: s.quote}
	if s.tag != nil && s.state.InTag() {
		ctx.Tag = s.tag.tag
		if ctx.Tag == "" {
			ctx.Tag = strings.ToLower(s.tagName.String())
		}
	}
	switch s.state {
	case StateAttrName, StateAfterAttrName, StateBeforeAttrValue, StateAttrValueQuoted, StateAttrValueUnquoted:
		ctx.Attr = strings.ToLower(s.attr.String())
		ctx.AttrValue = s.attrValue.String()
	}
	if el := s.current(); el != nil {
		ctx.Element = el.tag
	}

	trimmed := strings.TrimRight(out, " \t\n\r\f")
	ctx.EndsTag = strings.HasSuffix(trimmed, ">")
	if s.state == StateText || s.state == StateRawText {
		last := strings.LastIndexByte(trimmed, '>')
		ctx.TrailingText = len(trimmed) > last+1
	}
	return ctx
}

// current returns the innermost open element.
func (s *Scanner) current() *element {
	if len(s.open) == 0 {
		return nil
	}
	return s.open[len(s.open)-1]
}

// Feed advances the scanner over text appended to the output.
func (s *Scanner) Feed(text string) {
	for i := 0; i < len(text); i++ {
		s.step(text[i])
		s.pos++
	}
}

func (s *Scanner) step(c byte) {
	switch s.state {
	case StateText:
		if c == '<' {
			s.state = StateTagOpen
		}

	case StateTagOpen:
		switch {
		case isAlpha(c):
			s.beginTag()
			s.tagName.WriteByte(c)
		case c == '/':
			s.state = StateEndTag
			s.tagName.Reset()
		case c == '!':
			s.state = StateComment
			s.commentEnd = ""
			s.pending = ""
		default:
			s.state = StateText
			if c == '<' {
				s.state = StateTagOpen
			}
		}

	case StateTagName:
		switch {
		case isSpace(c):
			s.endTagName()
			s.state = StateBeforeAttrName
		case c == '/':
			s.endTagName()
			s.state = StateSelfClosing
		case c == '>':
			s.endTagName()
			s.closeTag(false)
		default:
			s.tagName.WriteByte(c)
		}

	case StateBeforeAttrName:
		switch {
		case isSpace(c):
		case c == '/':
			s.state = StateSelfClosing
		case c == '>':
			s.closeTag(false)
		default:
			s.beginAttr(c)
		}

	case StateAttrName:
		switch {
		case isSpace(c):
			s.state = StateAfterAttrName
		case c == '=':
			s.state = StateBeforeAttrValue
		case c == '/':
			s.state = StateSelfClosing
		case c == '>':
			s.closeTag(false)
		default:
			s.attr.WriteByte(c)
		}

	case StateAfterAttrName:
		switch {
		case isSpace(c):
		case c == '=':
			s.state = StateBeforeAttrValue
		case c == '/':
			s.state = StateSelfClosing
		case c == '>':
			s.closeTag(false)
		default:
			s.beginAttr(c)
		}

	case StateBeforeAttrValue:
		switch {
		case isSpace(c):
		case c == '"' || c == '\'':
			s.quote = c
			s.state = StateAttrValueQuoted
		case c == '>':
			s.closeTag(false)
		default:
			s.quote = 0
			s.attrValue.WriteByte(c)
			s.state = StateAttrValueUnquoted
		}

	case StateAttrValueQuoted:
		if c == s.quote {
			s.quote = 0
			s.state = StateBeforeAttrName
			return
		}
		s.attrValue.WriteByte(c)

	case StateAttrValueUnquoted:
		switch {
		case isSpace(c):
			s.state = StateBeforeAttrName
		case c == '>':
			s.closeTag(false)
		default:
			s.attrValue.WriteByte(c)
		}

	case StateSelfClosing:
		switch {
		case c == '>':
			s.closeTag(true)
		case isSpace(c):
			s.state = StateBeforeAttrName
		default:
			s.beginAttr(c)
		}

	case StateEndTag:
		if c == '>' {
			s.popElement(strings.ToLower(s.tagName.String()))
			s.tagName.Reset()
			s.state = StateText
			return
		}
		if !isSpace(c) {
			s.tagName.WriteByte(c)
		}

	case StateComment:
		s.stepComment(c)

	case StateRawText:
		s.pending += string(c)
		if !strings.HasPrefix(s.rawEnd, lowerPrefix(s.pending, len(s.rawEnd))) {
			s.pending = ""
			if c == '<' {
				s.pending = "<"
			}
			return
		}
		if len(s.pending) >= len(s.rawEnd) {
			// Matched "</tag"; the rest of the end tag is scanned normally.
			s.pending = ""
			s.state = StateEndTag
			s.tagName.Reset()
			s.tagName.WriteString(s.rawEnd[2:])
		}
	}
}

func (s *Scanner) stepComment(c byte) {
	if s.commentEnd == "" {
		s.pending += string(c)
		switch {
		case s.pending == "-":
			return
		case s.pending == "--":
			s.commentEnd = "-->"
			s.pending = ""
			return
		default:
			s.commentEnd = ">"
			s.pending = ""
			if c == '>' {
				s.state = StateText
			}
			return
		}
	}
	s.pending += string(c)
	if len(s.pending) > len(s.commentEnd) {
		s.pending = s.pending[len(s.pending)-len(s.commentEnd):]
	}
	if s.pending == s.commentEnd {
		s.pending = ""
		s.state = StateText
	}
}

func lowerPrefix(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.ToLower(s)
}

func (s *Scanner) beginTag() {
	s.state = StateTagName
	s.tagName.Reset()
	s.tag = &element{}
	s.attr.Reset()
	s.attrValue.Reset()
}

func (s *Scanner) endTagName() {
	if s.tag != nil && s.tag.tag == "" {
		s.tag.tag = strings.ToLower(s.tagName.String())
		s.tag.nameEnd = s.pos
	}
}

func (s *Scanner) beginAttr(c byte) {
	s.attr.Reset()
	s.attrValue.Reset()
	s.attr.WriteByte(c)
	s.attrStart = s.pos
	s.quote = 0
	s.state = StateAttrName
}

// closeTag handles the '>' of a start tag.
func (s *Scanner) closeTag(selfClosing bool) {
	el := s.tag
	s.tag = nil
	s.attr.Reset()
	s.attrValue.Reset()
	s.state = StateText
	if el == nil {
		return
	}

	if dom.IsVoidElement(el.tag) || selfClosing {
		return
	}
	s.open = append(s.open, el)
	if dom.IsRawTextElement(el.tag) {
		s.state = StateRawText
		s.rawEnd = "</" + el.tag
		s.pending = ""
	}
}

// popElement closes the innermost element named tag, and any elements left
// open inside it. Unmatched end tags are ignored.
func (s *Scanner) popElement(tag string) {
	for i := len(s.open) - 1; i >= 0; i-- {
		if s.open[i].tag == tag {
			s.open = s.open[:i]
			return
		}
	}
}

// TrimSpread drops a "..." spread marker that was read as an attribute name
// and returns how many trailing bytes of output it occupied, including any
// whitespace after it.
func (s *Scanner) TrimSpread() int {
	if s.state != StateAttrName && s.state != StateAfterAttrName {
		return 0
	}
	if s.attr.String() != "..." {
		return 0
	}
	n := s.pos - s.attrStart
	s.attr.Reset()
	s.state = StateBeforeAttrName
	s.pos = s.attrStart
	return n
}

// target returns the element a binding in the current state attaches to.
func (s *Scanner) target() *element {
	if s.state.InTag() {
		return s.tag
	}
	return s.current()
}

// shift moves every recorded offset at or after from by n bytes.
func (s *Scanner) shift(from, n int) {
	if s.tag != nil && s.tag.nameEnd > from {
		s.tag.nameEnd += n
	}
	for _, el := range s.open {
		if el.nameEnd > from {
			el.nameEnd += n
		}
	}
	if s.attrStart > from {
		s.attrStart += n
	}
	s.pos += n
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
