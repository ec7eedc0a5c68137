// Package assembly turns an ordered set of fetched audio tracks into one
// continuous mix: per-track loudness normalization, a configurable cut or
// crossfade transition between consecutive tracks, and a single export at
// the end.
package assembly
