// Package loop provides the cooperative, single-threaded event loop that
// drives a refx runtime.
//
// The loop mirrors the host model a browser offers: a task queue and a
// microtask queue. Each turn runs exactly one task and then drains the
// microtask queue completely, including microtasks queued while draining.
// Mutation observer batches and deferred source settlements are delivered
// as microtasks; the synthetic mount notification is posted as a task so it
// runs on the next turn.
//
// # Usage
//
//	l := loop.New()
//	l.Post(func() { ... })
//	l.QueueMicrotask(func() { ... })
//
//	// Deterministic draining (tests, CLI):
//	l.RunUntilIdle()
//
//	// Long-running hosts:
//	go l.Run(ctx)
//
// Post and QueueMicrotask are safe to call from any goroutine; queued
// functions always execute on the goroutine that runs the loop.
package loop
