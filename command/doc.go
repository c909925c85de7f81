// Package command provides pure Go command handlers and their registry.
// Handlers have no dependency on any particular transport or runtime;
// they can be served by a Hostlink host, a wasm module, or called
// directly in tests.
package command
