package dom

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/refx/pkg/loop"
)

func newTestDocument() (*Document, *loop.Loop) {
	l := loop.New()
	return NewDocument(l), l
}

func TestNodeTypeString(t *testing.T) {
	tests := []struct {
		typ  NodeType
		want string
	}{
		{ElementNode, "Element"},
		{TextNode, "Text"},
		{CommentNode, "Comment"},
		{DocumentNode, "Document"},
		{NodeType(200), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("NodeType.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocumentSkeleton(t *testing.T) {
	doc, _ := newTestDocument()

	if doc.Body().Parent() != doc.DocumentElement() {
		t.Error("body should be a child of html")
	}
	if !doc.Body().IsConnected() {
		t.Error("body should be connected")
	}
	if got := doc.Root().OuterHTML(); got != "<!DOCTYPE html><html><head></head><body></body></html>" {
		t.Errorf("OuterHTML() = %q", got)
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	doc, _ := newTestDocument()
	seen := map[NodeID]bool{}
	for i := 0; i < 100; i++ {
		n := doc.CreateElement("div")
		if seen[n.ID()] {
			t.Fatalf("duplicate id %d", n.ID())
		}
		seen[n.ID()] = true
	}
}

func TestAttributes(t *testing.T) {
	doc, _ := newTestDocument()
	el := doc.CreateElement("input")

	if err := el.SetAttribute("Type", "text"); err != nil {
		t.Fatalf("SetAttribute() error = %v", err)
	}
	if v, ok := el.GetAttribute("type"); !ok || v != "text" {
		t.Errorf("GetAttribute(type) = %q, %v", v, ok)
	}
	if err := el.SetAttribute("type", "email"); err != nil {
		t.Fatal(err)
	}
	if len(el.Attributes()) != 1 {
		t.Errorf("replacing should not duplicate, got %v", el.Attributes())
	}
	if !el.RemoveAttribute("TYPE") {
		t.Error("RemoveAttribute should report removal")
	}
	if el.HasAttribute("type") {
		t.Error("attribute still present")
	}
}

func TestSetAttributeInvalidName(t *testing.T) {
	doc, _ := newTestDocument()
	el := doc.CreateElement("div")

	for _, name := range []string{"", "a b", `x"`, "a=b", "<x", "a/b"} {
		err := el.SetAttribute(name, "v")
		if !errors.Is(err, ErrInvalidAttributeName) {
			t.Errorf("SetAttribute(%q) error = %v, want ErrInvalidAttributeName", name, err)
		}
	}

	text := doc.CreateTextNode("x")
	if err := text.SetAttribute("id", "a"); !errors.Is(err, ErrHierarchy) {
		t.Errorf("SetAttribute on text = %v, want ErrHierarchy", err)
	}
}

func TestClassList(t *testing.T) {
	doc, _ := newTestDocument()
	el := doc.CreateElement("div")

	if err := el.AddClass("a", "b c"); err != nil {
		t.Fatal(err)
	}
	if err := el.AddClass("a"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, el.Classes()); diff != "" {
		t.Errorf("Classes() mismatch (-want +got):\n%s", diff)
	}

	if err := el.ToggleClass("b", false); err != nil {
		t.Fatal(err)
	}
	if el.HasClass("b") {
		t.Error("b should be removed")
	}
	if err := el.RemoveClass("a", "c"); err != nil {
		t.Fatal(err)
	}
	if v, _ := el.GetAttribute("class"); v != "" {
		t.Errorf("class = %q, want empty", v)
	}
}

func TestDataset(t *testing.T) {
	doc, _ := newTestDocument()
	el := doc.CreateElement("div")

	if err := el.SetDataset("userId", "7"); err != nil {
		t.Fatal(err)
	}
	if !el.HasAttribute("data-user-id") {
		t.Errorf("attributes = %v, want data-user-id", el.Attributes())
	}
	if v, ok := el.DatasetValue("userId"); !ok || v != "7" {
		t.Errorf("DatasetValue() = %q, %v", v, ok)
	}
	if diff := cmp.Diff(map[string]string{"userId": "7"}, el.Dataset()); diff != "" {
		t.Errorf("Dataset() mismatch (-want +got):\n%s", diff)
	}
	if !el.RemoveDataset("userId") {
		t.Error("RemoveDataset should report removal")
	}
}

func TestDatasetNameConversion(t *testing.T) {
	tests := []struct {
		key  string
		attr string
	}{
		{"x", "data-x"},
		{"fooBar", "data-foo-bar"},
		{"already-dashed", "data-already-dashed"},
	}
	for _, tt := range tests {
		if got := DatasetAttributeName(tt.key); got != tt.attr {
			t.Errorf("DatasetAttributeName(%q) = %q, want %q", tt.key, got, tt.attr)
		}
	}

	if key, ok := DatasetKey("data-foo-bar"); !ok || key != "fooBar" {
		t.Errorf("DatasetKey() = %q, %v", key, ok)
	}
	if _, ok := DatasetKey("class"); ok {
		t.Error("class is not a data attribute")
	}
}

func TestTreeMutation(t *testing.T) {
	doc, _ := newTestDocument()
	parent := doc.CreateElement("ul")
	a := doc.CreateElement("li")
	b := doc.CreateElement("li")
	c := doc.CreateElement("li")

	if err := parent.AppendChild(a); err != nil {
		t.Fatal(err)
	}
	if err := parent.AppendChild(c); err != nil {
		t.Fatal(err)
	}
	if err := parent.InsertBefore(b, c); err != nil {
		t.Fatal(err)
	}

	kids := parent.Children()
	if len(kids) != 3 || kids[0] != a || kids[1] != b || kids[2] != c {
		t.Fatalf("children = %v", kids)
	}

	if err := parent.RemoveChild(b); err != nil {
		t.Fatal(err)
	}
	if b.Parent() != nil || parent.ChildCount() != 2 {
		t.Error("RemoveChild did not detach")
	}
	if err := parent.RemoveChild(b); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveChild = %v, want ErrNotFound", err)
	}

	// Moving an attached node detaches it from its previous parent.
	other := doc.CreateElement("ol")
	if err := other.AppendChild(a); err != nil {
		t.Fatal(err)
	}
	if parent.ChildCount() != 1 || a.Parent() != other {
		t.Error("AppendChild did not move the node")
	}
}

func TestHierarchyErrors(t *testing.T) {
	doc, _ := newTestDocument()
	outer := doc.CreateElement("div")
	inner := doc.CreateElement("span")
	if err := outer.AppendChild(inner); err != nil {
		t.Fatal(err)
	}

	if err := inner.AppendChild(outer); !errors.Is(err, ErrHierarchy) {
		t.Errorf("cycle = %v, want ErrHierarchy", err)
	}
	text := doc.CreateTextNode("x")
	if err := text.AppendChild(doc.CreateElement("b")); !errors.Is(err, ErrHierarchy) {
		t.Errorf("text child = %v, want ErrHierarchy", err)
	}

	other, _ := newTestDocument()
	if err := outer.AppendChild(other.CreateElement("p")); !errors.Is(err, ErrWrongDocument) {
		t.Errorf("foreign node = %v, want ErrWrongDocument", err)
	}
}

func TestInnerHTMLRoundTrip(t *testing.T) {
	doc, _ := newTestDocument()
	div := doc.CreateElement("div")

	if err := div.SetInnerHTML(`<b class="x">hi</b> &amp; <input disabled><!--c-->`); err != nil {
		t.Fatal(err)
	}
	want := `<b class="x">hi</b> &amp; <input disabled><!--c-->`
	if got := div.InnerHTML(); got != want {
		t.Errorf("InnerHTML() = %q, want %q", got, want)
	}
	if got := div.TextContent(); got != "hi & " {
		t.Errorf("TextContent() = %q", got)
	}
}

func TestParseLowercasesAndDedupesAttributes(t *testing.T) {
	doc, _ := newTestDocument()
	div := doc.CreateElement("div")

	if err := div.SetInnerHTML(`<P RESOLVE="#REF1" resolve="#REF2">x</P>`); err != nil {
		t.Fatal(err)
	}
	p := div.FirstChild()
	if p.Tag() != "p" {
		t.Errorf("Tag() = %q, want p", p.Tag())
	}
	if diff := cmp.Diff([]Attribute{{Name: "resolve", Value: "#REF1"}}, p.Attributes()); diff != "" {
		t.Errorf("Attributes() mismatch (-want +got):\n%s", diff)
	}
}

func TestSetTextContent(t *testing.T) {
	doc, _ := newTestDocument()
	div := doc.CreateElement("div")
	if err := div.SetInnerHTML("<b>a</b><i>b</i>"); err != nil {
		t.Fatal(err)
	}

	if err := div.SetTextContent("<plain>"); err != nil {
		t.Fatal(err)
	}
	if div.ChildCount() != 1 || div.FirstChild().Type() != TextNode {
		t.Fatalf("children = %v", div.Children())
	}
	if got := div.InnerHTML(); got != "&lt;plain&gt;" {
		t.Errorf("InnerHTML() = %q", got)
	}

	if err := div.SetTextContent(""); err != nil {
		t.Fatal(err)
	}
	if div.ChildCount() != 0 {
		t.Error("empty text should clear children")
	}
}

func TestAttributeEscaping(t *testing.T) {
	doc, _ := newTestDocument()
	el := doc.CreateElement("a")
	if err := el.SetAttribute("title", `say "hi" & <go>`); err != nil {
		t.Fatal(err)
	}
	want := `<a title="say &quot;hi&quot; &amp; &lt;go&gt;"></a>`
	if got := el.OuterHTML(); got != want {
		t.Errorf("OuterHTML() = %q, want %q", got, want)
	}
}

func TestQueries(t *testing.T) {
	doc, _ := newTestDocument()
	if err := doc.Body().SetInnerHTML(`<div id="a"><span data-k="1"></span><span></span></div>`); err != nil {
		t.Fatal(err)
	}

	if doc.ElementByID("a") == nil {
		t.Fatal("ElementByID(a) = nil")
	}
	if got := len(doc.Body().ElementsByTag("span")); got != 2 {
		t.Errorf("ElementsByTag(span) = %d, want 2", got)
	}
	if got := len(doc.Body().ElementsByAttribute("data-k")); got != 1 {
		t.Errorf("ElementsByAttribute(data-k) = %d, want 1", got)
	}
}

func TestAttributeTables(t *testing.T) {
	if !IsBooleanAttribute("Disabled") || IsBooleanAttribute("value") {
		t.Error("boolean attribute table mismatch")
	}
	if !IsEnumeratedAttribute("contenteditable") || !IsEnumeratedAttribute("aria-hidden") || IsEnumeratedAttribute("checked") {
		t.Error("enumerated attribute table mismatch")
	}
	if !IsVoidElement("input") || IsVoidElement("div") {
		t.Error("void element table mismatch")
	}
}
