package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Scheduler queues microtasks. *loop.Loop implements it.
type Scheduler interface {
	QueueMicrotask(fn func())
}

// Document owns a node tree and its mutation observers.
type Document struct {
	root *Node
	html *Node
	head *Node
	body *Node

	sched  Scheduler
	nextID NodeID

	observers []*MutationObserver
	delivery  bool // a delivery microtask is queued
}

// NewDocument creates a document with empty html, head and body elements.
// Mutation records are delivered through sched.
func NewDocument(sched Scheduler) *Document {
	d := &Document{sched: sched}
	d.root = d.newNode(DocumentNode, "")
	d.html = d.CreateElement("html")
	d.head = d.CreateElement("head")
	d.body = d.CreateElement("body")

	// Assemble the skeleton without recording mutations.
	d.html.children = []*Node{d.head, d.body}
	d.head.parent = d.html
	d.body.parent = d.html
	d.root.children = []*Node{d.html}
	d.html.parent = d.root
	return d
}

func (d *Document) newNode(typ NodeType, tag string) *Node {
	d.nextID++
	return &Node{id: d.nextID, typ: typ, tag: tag, owner: d}
}

// Root returns the document node.
func (d *Document) Root() *Node { return d.root }

// DocumentElement returns the html element.
func (d *Document) DocumentElement() *Node { return d.html }

// Head returns the head element.
func (d *Document) Head() *Node { return d.head }

// Body returns the body element.
func (d *Document) Body() *Node { return d.body }

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Node {
	return d.newNode(ElementNode, strings.ToLower(tag))
}

// CreateTextNode creates a detached text node.
func (d *Document) CreateTextNode(text string) *Node {
	n := d.newNode(TextNode, "")
	n.data = text
	return n
}

// CreateComment creates a detached comment node.
func (d *Document) CreateComment(text string) *Node {
	n := d.newNode(CommentNode, "")
	n.data = text
	return n
}

// ElementByID searches the whole document for an element by id.
func (d *Document) ElementByID(id string) *Node {
	return d.root.ElementByID(id)
}

// ParseFragment parses markup as the children of context and returns the
// detached top-level nodes. Parsing follows the HTML5 algorithm, so
// attribute and tag names come back lower case and duplicate attributes keep
// their first occurrence.
func (d *Document) ParseFragment(markup string, context *Node) ([]*Node, error) {
	tag := "body"
	if context != nil && context.typ == ElementNode {
		tag = context.tag
	}
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}

	parsed, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}

	out := make([]*Node, 0, len(parsed))
	for _, p := range parsed {
		if n := d.convert(p); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// convert copies an x/net/html node tree into document nodes.
func (d *Document) convert(p *html.Node) *Node {
	var n *Node
	switch p.Type {
	case html.ElementNode:
		n = d.CreateElement(p.Data)
		for _, a := range p.Attr {
			name := strings.ToLower(a.Key)
			if a.Namespace != "" {
				name = a.Namespace + ":" + name
			}
			if n.HasAttribute(name) {
				continue
			}
			n.attrs = append(n.attrs, Attribute{Name: name, Value: a.Val})
		}
	case html.TextNode:
		n = d.CreateTextNode(p.Data)
	case html.CommentNode:
		n = d.CreateComment(p.Data)
	default:
		return nil
	}

	for c := p.FirstChild; c != nil; c = c.NextSibling {
		if child := d.convert(c); child != nil {
			child.parent = n
			n.children = append(n.children, child)
		}
	}
	return n
}
