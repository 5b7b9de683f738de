package dom

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// NodeType is the node type discriminator.
type NodeType uint8

const (
	ElementNode  NodeType = iota + 1 // <div>, <button>, etc.
	TextNode                         // Character data
	CommentNode                      // <!-- ... -->
	DocumentNode                     // Tree root
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	case DocumentNode:
		return "Document"
	default:
		return "Unknown"
	}
}

// NodeID identifies a node within its document.
type NodeID uint64

var (
	// ErrInvalidAttributeName is returned when an attribute name contains
	// characters markup cannot represent.
	ErrInvalidAttributeName = errors.New("dom: invalid attribute name")

	// ErrHierarchy is returned when an insertion would create an invalid tree.
	ErrHierarchy = errors.New("dom: hierarchy request error")

	// ErrNotFound is returned when a reference node is not a child.
	ErrNotFound = errors.New("dom: node not found")

	// ErrWrongDocument is returned when a node from another document is inserted.
	ErrWrongDocument = errors.New("dom: node belongs to another document")
)

// Attribute is a single name/value pair. Names are stored lower case.
type Attribute struct {
	Name  string
	Value string
}

// Node is a live DOM node.
type Node struct {
	id    NodeID
	typ   NodeType
	tag   string // lower-case tag name for elements
	data  string // text and comment content
	attrs []Attribute

	parent   *Node
	children []*Node
	owner    *Document

	listeners map[string][]*listener
}

// ID returns the node's stable identifier.
func (n *Node) ID() NodeID { return n.id }

// Type returns the node type.
func (n *Node) Type() NodeType { return n.typ }

// IsElement returns true for element nodes.
func (n *Node) IsElement() bool { return n != nil && n.typ == ElementNode }

// Tag returns the lower-case tag name of an element, or "" for other nodes.
func (n *Node) Tag() string { return n.tag }

// Data returns the content of a text or comment node.
func (n *Node) Data() string { return n.data }

// SetData replaces the content of a text or comment node.
func (n *Node) SetData(s string) {
	if n.typ == TextNode || n.typ == CommentNode {
		n.data = s
	}
}

// OwnerDocument returns the document that created the node.
func (n *Node) OwnerDocument() *Document { return n.owner }

// Parent returns the parent node, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// FirstChild returns the first child, or nil.
func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// LastChild returns the last child, or nil.
func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// IsConnected reports whether the node is attached to its document's tree.
func (n *Node) IsConnected() bool {
	if n.owner == nil {
		return false
	}
	return n.owner.root.Contains(n)
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the visited node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range slices.Clone(n.children) {
		c.Walk(fn)
	}
}

// =============================================================================
// Attributes
// =============================================================================

// Attributes returns a copy of the attribute list in document order.
func (n *Node) Attributes() []Attribute { return slices.Clone(n.attrs) }

// GetAttribute returns the value of the named attribute.
// Name matching is case-insensitive.
func (n *Node) GetAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttribute reports whether the named attribute is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.GetAttribute(name)
	return ok
}

// SetAttribute sets or replaces the named attribute on an element.
func (n *Node) SetAttribute(name, value string) error {
	if n.typ != ElementNode {
		return fmt.Errorf("%w: attributes only exist on elements", ErrHierarchy)
	}
	if !ValidAttributeName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidAttributeName, name)
	}
	name = strings.ToLower(name)
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return nil
		}
	}
	n.attrs = append(n.attrs, Attribute{Name: name, Value: value})
	return nil
}

// RemoveAttribute removes the named attribute and reports whether it existed.
func (n *Node) RemoveAttribute(name string) bool {
	name = strings.ToLower(name)
	for i, a := range n.attrs {
		if a.Name == name {
			n.attrs = slices.Delete(n.attrs, i, i+1)
			return true
		}
	}
	return false
}

// =============================================================================
// Class list
// =============================================================================

// Classes returns the element's class tokens in order.
func (n *Node) Classes() []string {
	v, _ := n.GetAttribute("class")
	return strings.Fields(v)
}

// HasClass reports whether the element carries the class token.
func (n *Node) HasClass(name string) bool {
	return slices.Contains(n.Classes(), name)
}

// AddClass adds class tokens that are not present yet.
func (n *Node) AddClass(names ...string) error {
	classes := n.Classes()
	changed := false
	for _, name := range names {
		for _, tok := range strings.Fields(name) {
			if !slices.Contains(classes, tok) {
				classes = append(classes, tok)
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	return n.SetAttribute("class", strings.Join(classes, " "))
}

// RemoveClass removes class tokens. The class attribute itself stays, as it
// does in browsers.
func (n *Node) RemoveClass(names ...string) error {
	if !n.HasAttribute("class") {
		return nil
	}
	classes := slices.DeleteFunc(n.Classes(), func(c string) bool {
		return slices.Contains(names, c)
	})
	return n.SetAttribute("class", strings.Join(classes, " "))
}

// ToggleClass adds the class when on is true and removes it otherwise.
func (n *Node) ToggleClass(name string, on bool) error {
	if on {
		return n.AddClass(name)
	}
	return n.RemoveClass(name)
}

// =============================================================================
// Dataset
// =============================================================================

// Dataset returns the element's data-* attributes keyed by camel case key.
func (n *Node) Dataset() map[string]string {
	out := make(map[string]string)
	for _, a := range n.attrs {
		if key, ok := DatasetKey(a.Name); ok {
			out[key] = a.Value
		}
	}
	return out
}

// DatasetValue returns the data attribute for key.
func (n *Node) DatasetValue(key string) (string, bool) {
	return n.GetAttribute(DatasetAttributeName(key))
}

// SetDataset sets the data attribute for key.
func (n *Node) SetDataset(key, value string) error {
	return n.SetAttribute(DatasetAttributeName(key), value)
}

// RemoveDataset removes the data attribute for key.
func (n *Node) RemoveDataset(key string) bool {
	return n.RemoveAttribute(DatasetAttributeName(key))
}

// =============================================================================
// Tree mutation
// =============================================================================

// AppendChild appends child, moving it from its current parent if needed.
func (n *Node) AppendChild(child *Node) error {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref. A nil ref appends.
func (n *Node) InsertBefore(child, ref *Node) error {
	if err := n.checkInsert(child); err != nil {
		return err
	}
	if ref != nil && ref.parent != n {
		return ErrNotFound
	}
	if child == ref {
		return nil
	}
	if child.parent != nil {
		child.parent.detach(child)
	}

	idx := len(n.children)
	if ref != nil {
		idx = slices.Index(n.children, ref)
	}
	n.children = slices.Insert(n.children, idx, child)
	child.parent = n
	n.owner.record(n, []*Node{child}, nil)
	return nil
}

// RemoveChild removes child from n.
func (n *Node) RemoveChild(child *Node) error {
	if child == nil || child.parent != n {
		return ErrNotFound
	}
	n.detach(child)
	return nil
}

// Remove detaches n from its parent, if any.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.detach(n)
	}
}

// ReplaceChildren replaces all children with nodes and records a single
// mutation for the change.
func (n *Node) ReplaceChildren(nodes ...*Node) error {
	for _, c := range nodes {
		if err := n.checkInsert(c); err != nil {
			return err
		}
	}
	removed := n.children
	for _, c := range removed {
		c.parent = nil
	}
	n.children = nil
	for _, c := range nodes {
		if c.parent != nil {
			c.parent.detach(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
	n.owner.record(n, slices.Clone(nodes), removed)
	return nil
}

func (n *Node) detach(child *Node) {
	idx := slices.Index(n.children, child)
	if idx < 0 {
		return
	}
	n.children = slices.Delete(n.children, idx, idx+1)
	child.parent = nil
	n.owner.record(n, nil, []*Node{child})
}

func (n *Node) checkInsert(child *Node) error {
	if child == nil {
		return fmt.Errorf("%w: nil child", ErrHierarchy)
	}
	if n.typ != ElementNode && n.typ != DocumentNode {
		return fmt.Errorf("%w: %s nodes cannot have children", ErrHierarchy, n.typ)
	}
	if child.typ == DocumentNode {
		return fmt.Errorf("%w: cannot insert a document", ErrHierarchy)
	}
	if child.owner != n.owner {
		return ErrWrongDocument
	}
	if child.Contains(n) {
		return fmt.Errorf("%w: node would contain itself", ErrHierarchy)
	}
	return nil
}

// =============================================================================
// Content
// =============================================================================

// TextContent returns the concatenated text of all descendant text nodes.
func (n *Node) TextContent() string {
	if n.typ == TextNode || n.typ == CommentNode {
		return n.data
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.typ == TextNode {
			b.WriteString(c.data)
		}
		return true
	})
	return b.String()
}

// SetTextContent replaces all children with a single text node.
func (n *Node) SetTextContent(s string) error {
	if n.typ == TextNode || n.typ == CommentNode {
		n.data = s
		return nil
	}
	if s == "" {
		return n.ReplaceChildren()
	}
	return n.ReplaceChildren(n.owner.CreateTextNode(s))
}

// SetInnerHTML parses markup in the context of n and replaces n's children
// with the result.
func (n *Node) SetInnerHTML(markup string) error {
	nodes, err := n.owner.ParseFragment(markup, n)
	if err != nil {
		return err
	}
	return n.ReplaceChildren(nodes...)
}

// InnerHTML serializes n's children.
func (n *Node) InnerHTML() string {
	var b strings.Builder
	for _, c := range n.children {
		writeNode(&b, c, n.tag)
	}
	return b.String()
}

// OuterHTML serializes n and its children.
func (n *Node) OuterHTML() string {
	var b strings.Builder
	writeNode(&b, n, "")
	return b.String()
}

// String returns a short description for debugging.
func (n *Node) String() string {
	switch n.typ {
	case ElementNode:
		return fmt.Sprintf("<%s#%d>", n.tag, n.id)
	case TextNode:
		return fmt.Sprintf("#text(%q)", n.data)
	default:
		return fmt.Sprintf("#%s", strings.ToLower(n.typ.String()))
	}
}

// =============================================================================
// Queries
// =============================================================================

// ElementsByTag returns descendant elements with the tag, in document order.
func (n *Node) ElementsByTag(tag string) []*Node {
	tag = strings.ToLower(tag)
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c != n && c.typ == ElementNode && (tag == "*" || c.tag == tag) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ElementsByAttribute returns descendant elements carrying the attribute.
func (n *Node) ElementsByAttribute(name string) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c != n && c.typ == ElementNode && c.HasAttribute(name) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ElementByID returns the first descendant element whose id matches.
func (n *Node) ElementByID(id string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.typ == ElementNode {
			if v, ok := c.GetAttribute("id"); ok && v == id {
				found = c
				return false
			}
		}
		return true
	})
	return found
}
