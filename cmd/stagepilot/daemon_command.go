package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stagepilot/internal/api"
	"stagepilot/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon lifecycle",
	}

	var logLevel string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the daemon is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon running (pid %d) at %s\n", status.PID, ctx.apiAddress())
				return nil
			})
			if errors.Is(err, api.ErrDaemonUnavailable) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			return err
		},
	}

	daemonCmd.AddCommand(runCmd, statusCmd)
	return daemonCmd
}
