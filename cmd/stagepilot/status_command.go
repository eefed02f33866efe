package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagepilot/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, connection, and playback status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				renderStatus(cmd, status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderStatus(cmd *cobra.Command, status api.StatusResponse) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderLabelled("Running", yesNo(status.Running), colorize, boolColor(status.Running)))
	fmt.Fprintln(stdout, renderLabelled("PID", fmt.Sprintf("%d", status.PID), colorize, ""))
	fmt.Fprintln(stdout, renderLabelled("Lock file", status.LockFilePath, colorize, ""))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("REAPER", colorize) {
		fmt.Fprintln(stdout, line)
	}
	connection := status.Connection
	fmt.Fprintln(stdout, renderLabelled("Connected", yesNo(connection.Connected), colorize, boolColor(connection.Connected)))
	if connection.Status != "" {
		fmt.Fprintln(stdout, renderLabelled("State", connection.Status, colorize, ""))
	}
	if connection.Reason != "" {
		fmt.Fprintln(stdout, renderLabelled("Reason", connection.Reason, colorize, ansiYellow))
	}
	if connection.Attempts > 0 {
		fmt.Fprintln(stdout, renderLabelled("Attempts", fmt.Sprintf("%d", connection.Attempts), colorize, ""))
	}
	if connection.PingLatency > 0 {
		fmt.Fprintln(stdout, renderLabelled("Latency", connection.PingLatency.String(), colorize, ""))
	}
	if status.ProjectID != "" {
		fmt.Fprintln(stdout, renderLabelled("Project", status.ProjectID, colorize, ""))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Playback", colorize) {
		fmt.Fprintln(stdout, line)
	}
	playback := status.Playback
	fmt.Fprintln(stdout, renderLabelled("Playing", yesNo(playback.IsPlaying), colorize, boolColor(playback.IsPlaying)))
	fmt.Fprintln(stdout, renderLabelled("Position", formatSeconds(playback.Position), colorize, ""))
	if playback.CurrentRegionID != "" {
		fmt.Fprintln(stdout, renderLabelled("Region", playback.CurrentRegionID, colorize, ""))
	}
	if playback.BPM > 0 {
		fmt.Fprintln(stdout, renderLabelled("Tempo", fmt.Sprintf("%.1f bpm %d/%d", playback.BPM,
			playback.TimeSignature.Numerator, playback.TimeSignature.Denominator), colorize, ""))
	}
	fmt.Fprintln(stdout, renderLabelled("Autoplay", yesNo(playback.AutoplayEnabled), colorize, ""))
	fmt.Fprintln(stdout, renderLabelled("Count-in", yesNo(playback.CountInEnabled), colorize, ""))
	if playback.RecordingArmed {
		fmt.Fprintln(stdout, renderLabelled("Recording", "armed", colorize, ansiRed))
	}
	if status.AtHardStop {
		fmt.Fprintln(stdout, renderLabelled("Hard stop", "reached", colorize, ansiYellow))
	}

	if status.MIDIDevice != "" || status.MIDIConnected {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("MIDI", colorize) {
			fmt.Fprintln(stdout, line)
		}
		fmt.Fprintln(stdout, renderLabelled("Connected", yesNo(status.MIDIConnected), colorize, boolColor(status.MIDIConnected)))
		if status.MIDIDevice != "" {
			fmt.Fprintln(stdout, renderLabelled("Device", status.MIDIDevice, colorize, ""))
		}
	}
}

func boolColor(ok bool) string {
	if ok {
		return ansiGreen
	}
	return ansiRed
}
