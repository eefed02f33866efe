// Package model defines the project entities mirrored from REAPER (regions,
// markers, setlists, playback state) and the pure annotation-tag derivations
// computed over them.
//
// Region and marker collections are replaced wholesale on every refresh, so
// derivations are computed on demand rather than cached.
package model
