/*
Package fallback resolves a requested font to an actually-usable one.

Given a requested font name and the text it must render, the resolver
returns exactly one usable font: the requested font itself when it is
present, valid and fully covers the text, otherwise the best candidate from
an ordered fallback chain. Selection is deterministic: the same requested
font, text, chain and filesystem state always yield the same resolved font.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package fallback

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'fontresolve.resolve'
func tracer() tracing.Trace {
	return tracing.Select("fontresolve.resolve")
}
