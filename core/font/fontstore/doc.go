/*
Package fontstore maintains a name→record index of discovered font files
across configured directories, backed by a persistent cache file.

The index is a two-tier cache: an in-memory snapshot for lock-free reads,
and a versioned JSON file that survives between runs. Refreshing installs a
new snapshot wholesale; readers never observe a partially updated index.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package fontstore

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'fontresolve.store'
func tracer() tracing.Trace {
	return tracing.Select("fontresolve.store")
}
