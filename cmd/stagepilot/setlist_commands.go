package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stagepilot/internal/api"
	"stagepilot/internal/model"
)

func newSetlistCommand(ctx *commandContext) *cobra.Command {
	setlistCmd := &cobra.Command{
		Use:   "setlist",
		Short: "Manage setlists",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List setlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				setlists, err := client.Setlists(cmd.Context())
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, setlists)
				}
				if len(setlists.Setlists) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No setlists for the current project.")
					return nil
				}
				rows := make([][]string, 0, len(setlists.Setlists))
				for _, sl := range setlists.Setlists {
					rows = append(rows, []string{sl.ID, sl.Name, strconv.Itoa(len(sl.Items))})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Items"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit machine-readable JSON")

	var showJSON bool
	showCmd := &cobra.Command{
		Use:   "show <setlist-id>",
		Short: "Show a setlist's ordered items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				setlists, err := client.Setlists(cmd.Context())
				if err != nil {
					return err
				}
				sl, ok := findSetlist(setlists.Setlists, args[0])
				if !ok {
					return fmt.Errorf("no setlist %q", args[0])
				}
				if showJSON {
					return writeJSON(cmd, sl)
				}
				printSetlist(cmd, sl)
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Emit machine-readable JSON")

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new setlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sl, err := client.CreateSetlist(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created setlist %q (%s)\n", sl.Name, sl.ID)
				return nil
			})
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <setlist-id> <name>",
		Short: "Rename a setlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sl, err := client.RenameSetlist(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed setlist %s to %q\n", sl.ID, sl.Name)
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <setlist-id>",
		Short: "Delete a setlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.DeleteSetlist(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted setlist %s\n", args[0])
				return nil
			})
		},
	}

	selectCmd := &cobra.Command{
		Use:   "select [setlist-id]",
		Short: "Make a setlist the active navigation order, or clear it with no argument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 && args[0] != "none" {
				id = args[0]
			}
			return ctx.withClient(func(client *api.Client) error {
				if err := client.SelectSetlist(cmd.Context(), id); err != nil {
					return err
				}
				if id == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cleared setlist selection")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Selected setlist %s\n", id)
				}
				return nil
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <setlist-id> <region-id>",
		Short: "Append a region to a setlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sl, err := client.AddSetlistItem(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printSetlist(cmd, sl)
				return nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <setlist-id> <item-id>",
		Short: "Remove an item from a setlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sl, err := client.RemoveSetlistItem(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printSetlist(cmd, sl)
				return nil
			})
		},
	}

	moveCmd := &cobra.Command{
		Use:   "move <setlist-id> <item-id> <position>",
		Short: "Move an item to a new position (zero-based)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[2])
			}
			return ctx.withClient(func(client *api.Client) error {
				sl, err := client.MoveSetlistItem(cmd.Context(), args[0], args[1], position)
				if err != nil {
					return err
				}
				printSetlist(cmd, sl)
				return nil
			})
		},
	}

	setlistCmd.AddCommand(listCmd, showCmd, createCmd, renameCmd, deleteCmd, selectCmd, addCmd, removeCmd, moveCmd)
	return setlistCmd
}

func findSetlist(setlists []model.Setlist, id string) (model.Setlist, bool) {
	for _, sl := range setlists {
		if sl.ID == id {
			return sl, true
		}
	}
	return model.Setlist{}, false
}

func printSetlist(cmd *cobra.Command, sl model.Setlist) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "%s (%s)\n", sl.Name, sl.ID)
	if len(sl.Items) == 0 {
		fmt.Fprintln(stdout, "  (empty)")
		return
	}
	rows := make([][]string, 0, len(sl.Items))
	for _, item := range sl.Items {
		rows = append(rows, []string{strconv.Itoa(item.Position), item.ID, item.RegionID})
	}
	fmt.Fprintln(stdout, renderTable(
		[]string{"#", "Item", "Region"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft},
	))
}
