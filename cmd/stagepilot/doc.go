// Command stagepilot is the CLI for the StagePilot daemon. It talks to
// the daemon's HTTP API; run "stagepilot daemon run" (or the stagepilotd
// binary) to start the daemon itself.
package main
