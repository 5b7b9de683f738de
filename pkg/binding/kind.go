package binding

import "fmt"

// Kind selects the sink a binding resolves to.
type Kind uint8

const (
	KindEvent Kind = iota + 1
	KindAttribute
	KindAttributeSet
	KindClass
	KindDataset
	KindDatasetSet
	KindInnerHTML
	KindInnerText
	KindTextContent
)

var kindNames = map[Kind]string{
	KindEvent:        "event",
	KindAttribute:    "attribute",
	KindAttributeSet: "attributeSet",
	KindClass:        "class",
	KindDataset:      "dataset",
	KindDatasetSet:   "datasetSet",
	KindInnerHTML:    "innerHTML",
	KindInnerText:    "innerText",
	KindTextContent:  "textContent",
}

// Kinds lists every binding kind in declaration order.
var Kinds = []Kind{
	KindEvent,
	KindAttribute,
	KindAttributeSet,
	KindClass,
	KindDataset,
	KindDatasetSet,
	KindInnerHTML,
	KindInnerText,
	KindTextContent,
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Keyed reports whether the kind targets a single named attribute or key.
func (k Kind) Keyed() bool {
	return k == KindEvent || k == KindAttribute || k == KindDataset
}

// Content reports whether the kind replaces an element's children.
func (k Kind) Content() bool {
	return k == KindInnerHTML || k == KindInnerText || k == KindTextContent
}
