// Package hydrate resolves marker-bearing elements into live bindings.
//
// A Hydrator observes the document for inserted subtrees. For every element
// that carries a RESOLVE or on<name> marker it takes the pending bindings
// recorded for that marker, attaches each one to a sink subscription or a
// delegated event handler, and strips the marker attributes. The resources
// a bound element holds live in an arena keyed by its node id and are
// released when the element is observed leaving the document.
//
// Hydration runs on the host loop: mutation batches arrive as microtasks,
// mount events are posted to the next task turn.
package hydrate
