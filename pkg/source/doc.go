// Package source normalizes reactive values into one subscription contract.
//
// A Source is a tagged union over four shapes:
//
//   - Push: anything with Subscribe(Observer) Disposer. Values arrive
//     whenever the producer emits.
//   - Deferred: anything with Then(onValue, onError). Exactly one value or
//     error arrives later.
//   - Callable: a function invoked with the triggering DOM event.
//   - Sequence: an iter.Seq[any] pulled one value at a time through an
//     explicit Cursor. Pulls happen on demand: per dispatched event, or per
//     emission of the trigger given to LazyOn.
//
// Sources are built with the explicit constructors Push, Defer, Callable and
// Lazy, or by From and ForEvent, which map the Go interfaces above onto the
// union once at binding time.
//
// # Built-in producers
//
//	count := source.NewSignal(0)        // current value + updates
//	clicks := source.NewSubject()       // hot stream, also an event target
//	user := source.Async(ctx, l, fetch) // goroutine work settled on the loop
//	label := source.Suspense("loading", source.Defer(user))
//
// # Errors
//
// Values emitted by a push source return sink errors to the emitter, so
// Signal.Set reports a failed DOM mutation synchronously, and so does the
// trigger of a LazyOn sequence. Initial and deferred deliveries have no
// synchronous caller; their sink errors reach the observer's Error callback
// wrapped in *SinkError so they can be told apart from source errors.
package source
