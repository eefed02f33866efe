package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagepilot/internal/api"
)

func newTransportCommands(ctx *commandContext) []*cobra.Command {
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Toggle play/pause",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.TogglePlay(cmd.Context()); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}

	countInCmd := &cobra.Command{
		Use:   "count-in",
		Short: "Restart the current region with a count-in pre-roll and play",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.PlayWithCountIn(cmd.Context()); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}

	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Move to the next region",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.NextRegion(cmd.Context()); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}

	prevCmd := &cobra.Command{
		Use:     "prev",
		Aliases: []string{"previous"},
		Short:   "Move to the previous region",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.PreviousRegion(cmd.Context()); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Jump back to the start of the current region",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.RestartRegion(cmd.Context()); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}

	seekCmd := &cobra.Command{
		Use:   "seek <position>",
		Short: "Seek to an absolute position (seconds or m:ss)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := parseSeconds(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				if err := client.Seek(cmd.Context(), position); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}

	gotoCmd := newGotoCommand(ctx)
	settingsCmd := newSettingsCommand(ctx)

	return []*cobra.Command{playCmd, countInCmd, nextCmd, prevCmd, restartCmd, seekCmd, gotoCmd, settingsCmd}
}

func newGotoCommand(ctx *commandContext) *cobra.Command {
	var autoplay bool
	var countIn bool

	cmd := &cobra.Command{
		Use:   "goto <region-id>",
		Short: "Move to a region, honoring autoplay and count-in settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SeekRegionRequest{RegionID: args[0]}
			if cmd.Flags().Changed("autoplay") {
				req.Autoplay = &autoplay
			}
			if cmd.Flags().Changed("count-in") {
				req.CountIn = &countIn
			}
			return ctx.withClient(func(client *api.Client) error {
				if err := client.SeekRegion(cmd.Context(), req); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "Override the global autoplay setting for this transition")
	cmd.Flags().BoolVar(&countIn, "count-in", false, "Override the global count-in setting for this transition")
	return cmd
}

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	var autoplay bool
	var countIn bool
	var record bool

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Update playback settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SettingsRequest{}
			if cmd.Flags().Changed("autoplay") {
				req.Autoplay = &autoplay
			}
			if cmd.Flags().Changed("count-in") {
				req.CountIn = &countIn
			}
			if cmd.Flags().Changed("record") {
				req.RecordingArmed = &record
			}
			if req.Autoplay == nil && req.CountIn == nil && req.RecordingArmed == nil {
				return printPlayback(cmd, ctx)
			}
			return ctx.withClient(func(client *api.Client) error {
				if err := client.UpdateSettings(cmd.Context(), req); err != nil {
					return err
				}
				return printPlayback(cmd, ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "Start playback automatically after region transitions")
	cmd.Flags().BoolVar(&countIn, "count-in", false, "Pre-roll before region starts")
	cmd.Flags().BoolVar(&record, "record", false, "Arm or disarm recording")
	return cmd
}

func newReconnectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconnect",
		Short: "Reset the connection to REAPER",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.Reconnect(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reconnect requested")
				return nil
			})
		},
	}
}

func printPlayback(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withClient(func(client *api.Client) error {
		playback, err := client.Playback(cmd.Context())
		if err != nil {
			return err
		}
		stdout := cmd.OutOrStdout()
		state := "paused"
		if playback.Playback.IsPlaying {
			state = "playing"
		}
		fmt.Fprintf(stdout, "%s at %s", state, formatSeconds(playback.Playback.Position))
		if playback.Playback.CurrentRegionID != "" {
			fmt.Fprintf(stdout, " (region %s)", playback.Playback.CurrentRegionID)
		}
		if playback.AtHardStop {
			fmt.Fprint(stdout, " [hard stop]")
		}
		fmt.Fprintln(stdout)
		return nil
	})
}
