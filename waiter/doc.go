// Package waiter correlates asynchronous listen node replies with the requests that
// caused them.
//
// An operation arms a wait of a given Kind with the key the reply must carry, sends
// its request and then awaits the wait. Inbound frames are fed to Engine.Dispatch
// from the receiving goroutine, which never blocks: a matching frame resolves the
// wait and wakes the awaiting caller.
//
// At most one wait per Kind is armed at a time. Arming a kind that is already armed
// and unresolved replaces its key, so callers must not issue overlapping requests of
// the same kind.
package waiter
