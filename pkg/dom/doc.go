// Package dom provides the headless live DOM that refx binds to.
//
// A Document owns a mutable tree of Nodes (elements, text and comments)
// rooted at a document node with the usual html, head and body elements.
// The package covers the host behavior the runtime depends on:
//
//   - Attribute, class list and dataset manipulation
//   - Markup parsing (SetInnerHTML) and serialization (InnerHTML, OuterHTML)
//   - MutationObserver with batched child-list records delivered as
//     microtasks through the document's Scheduler
//   - DOM events with at-target and bubbling dispatch
//
// # Identity
//
// Every node receives a NodeID from its document when created. IDs are
// stable for the node's lifetime and never reused, which lets other packages
// keep side tables keyed by NodeID instead of holding node pointers.
//
// # Threading
//
// A Document is not safe for concurrent use. All tree mutation and event
// dispatch happen on the goroutine that runs the document's event loop.
package dom
