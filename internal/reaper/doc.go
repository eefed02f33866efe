// Package reaper owns the connection to the REAPER web-remote endpoint.
// The Connector polls the transport on a fixed cadence, retries failed
// requests with a bounded budget, escalates exhausted retries into a
// reconnect cycle, and publishes authoritative playback and connection
// snapshots to the event bus. All transport commands flow through it so
// that every mutation is followed by an authoritative transport read.
package reaper
