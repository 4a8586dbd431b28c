// Package attack drives the attack lifecycle against the lab service.
//
// A Controller owns the status model, the rendered lease table and the
// status poll. Its state machine is
//
//	Idle --discover--> Discovering --result--> Idle
//	Idle --start-----> Attacking  --stop or running=false--> Idle
//
// # Concurrency
//
// All controller state is guarded by one mutex that is never held across a
// gateway call, so state only changes between network round trips. Each
// control that triggers a gateway call is marked busy before the call and
// released in a deferred cleanup, which runs on every exit path.
//
// The status poll runs on its own goroutine while the phase is Attacking.
// Leaving Attacking bumps a generation counter and cancels the poll loop
// under the lock; a poll response tagged with an older generation is
// dropped. In-flight requests are never aborted.
//
// # Rendering
//
// After every state change the controller builds a present.Snapshot under
// the lock and hands it to the configured present.Renderer after releasing
// the lock.
package attack
