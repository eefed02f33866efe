package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stagepilot/internal/midiact"
)

func newMIDICommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "midi",
		Short: "Show effective MIDI note mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			mappings := midiact.EffectiveMappings(cfg)
			if asJSON {
				return writeJSON(cmd, mappings)
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "MIDI input: %s", enabledDisabled(cfg.MIDI.Enabled))
			if cfg.MIDI.PortName != "" {
				fmt.Fprintf(stdout, " (port %q)", cfg.MIDI.PortName)
			}
			fmt.Fprintln(stdout)
			rows := make([][]string, 0, len(mappings))
			for _, mapping := range mappings {
				rows = append(rows, []string{
					strconv.Itoa(mapping.Note),
					mapping.Action,
					mapping.Region,
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Note", "Action", "Region"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func enabledDisabled(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
