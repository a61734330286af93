/*
Package fontcheck decides whether a candidate file is a safe, parseable font,
and extracts its metadata.

Validation is strictly ordered: existence, file type, readability, sfnt
signature, full parse. A failing check never panics and never aborts a scan;
it produces a Result carrying the specific failure.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package fontcheck

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'fontresolve.check'
func tracer() tracing.Trace {
	return tracing.Select("fontresolve.check")
}
