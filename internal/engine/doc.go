// Package engine implements the serd main loop.
//
// The Executor sits between an I/O boundary (InputOutput) and a SER
// Dispatcher. It is the only place where time passes for the core: every
// other component runs to completion inside one loop iteration.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Exactly one input event is handled at a time, in one goroutine:
//  1. WaitForInput blocks until the I/O boundary has an event (the only
//     suspension point).
//  2. The event is dispatched by kind. Service requests go through the
//     Dispatcher and their response is replied to the requesting actor.
//  3. Every event the services emitted is drained from the Dispatcher, in
//     global id order, and broadcast.
//
// Everything emitted while handling input N is broadcast before input N+1 is
// fetched. Services, the Dispatcher and the EventContext are never touched
// from another goroutine, so none of them lock.
//
// FAILURE POLICY:
//
//   - Malformed SR command: that actor's pipeline is closed; the loop goes on.
//   - Unknown service: same as a malformed command under
//     UnknownServiceClosePipeline (default), loop-fatal under
//     UnknownServiceFatal.
//   - Reply, broadcast or close failures: logged, the loop goes on.
//   - WaitForInput failure while the boundary is still open: loop-fatal.
//
// A Stop input closes the I/O boundary; the loop then exits successfully once
// the current iteration has drained its events.
package engine
