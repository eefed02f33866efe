// Package daemon assembles the long-running process: the REAPER
// connector, the local playback clock, setlist persistence, the
// navigation engine, MIDI input, the performance history recorder, and
// the HTTP/websocket API that the CLI talks to. It also enforces
// single-instance execution through a file lock.
package daemon
