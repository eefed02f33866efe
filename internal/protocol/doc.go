// Package protocol implements the line-oriented, tab-delimited text protocol
// spoken by REAPER's web-remote endpoint.
//
// Decoding is deliberately tolerant: unknown record types and malformed
// lines are skipped and logged, never fatal. Partial data beats total
// failure for a live-performance tool.
package protocol
