package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stagepilot/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent region plays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				history, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, history)
				}
				if len(history.Entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet.")
					return nil
				}
				rows := make([][]string, 0, len(history.Entries))
				for _, entry := range history.Entries {
					duration := ""
					if entry.EndedAt != nil {
						duration = entry.EndedAt.Sub(entry.StartedAt).Round(time.Second).String()
					}
					rows = append(rows, []string{
						entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
						entry.RegionName,
						duration,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Started", "Region", "Duration"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}
