// Package host provides the runtime environment for dispatching
// Hostlink commands.
//
// A Host owns an immutable command registry, a pluggable responder that
// decides how terminal responses reach their callers, and a type-keyed
// state container shared by every client created under it. Invocations
// are accepted synchronously and executed asynchronously on worker
// goroutines; exactly one terminal response is produced per accepted
// invocation.
package host
