package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagepilot/internal/api"
)

func newRegionsCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List project regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if refresh {
					if err := client.RefreshRegions(cmd.Context()); err != nil {
						return err
					}
				}
				regions, err := client.Regions(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, regions)
				}
				if len(regions.Regions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No regions in the current project.")
					return nil
				}
				rows := make([][]string, 0, len(regions.Regions))
				for _, region := range regions.Regions {
					bpm := ""
					if region.BPMOverride != nil {
						bpm = fmt.Sprintf("%.1f", *region.BPMOverride)
					}
					rows = append(rows, []string{
						region.ID,
						region.Name,
						formatSeconds(region.Start),
						formatSeconds(region.End),
						formatSeconds(region.EffectiveLength),
						yesNo(region.HardStop),
						bpm,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Start", "End", "Length", "Hard stop", "BPM"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-read regions from REAPER before listing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newMarkersCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "markers",
		Short: "List project markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				markers, err := client.Markers(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, markers)
				}
				if len(markers.Markers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No markers in the current project.")
					return nil
				}
				rows := make([][]string, 0, len(markers.Markers))
				for _, marker := range markers.Markers {
					rows = append(rows, []string{
						marker.ID,
						marker.Name,
						formatSeconds(marker.Position),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Position"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}
