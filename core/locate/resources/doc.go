/*
Package resources locates font files outside the configured store
directories.

Discovery may be a time-consuming task (system font listings, remote font
services), so this package works in an async/await fashion by returning a
promise. The call to the promise-function blocks until loading has completed
or the configured discovery timeout expires.

Discovery never runs as part of a resolution: clients discover first,
refresh the font store, and only then resolve.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package resources

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces to tracing key 'fontresolve.resources'.
func tracer() tracing.Trace {
	return tracing.Select("fontresolve.resources")
}
