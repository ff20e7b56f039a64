package commands

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fortuna/draftlens/internal/parser"
)

func newRowsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rows",
		Short: "Prints the names of the player rows currently rendered.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.parser.PlayerRows(ctx)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(rows))
				for _, r := range rows {
					names = append(names, r.Name())
				}
				return printNames(cmd, opts, names)
			})
		},
	}
}

func newNamesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "names [--required N]",
		Short: "Scrolls the available player list and prints the collected names.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				names, err := s.parser.AvailableNames(ctx, opts.required)
				if perr := printNames(cmd, opts, names); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

func newDraftedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "drafted",
		Short: "Prints the players on the user's roster.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				players, err := s.parser.DraftedPlayers(ctx)
				if perr := printDrafted(cmd, opts, players); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

func printNames(cmd *cobra.Command, opts *options, names []string) error {
	if names == nil {
		names = []string{}
	}
	if opts.asJSON {
		return writeJSON(cmd.OutOrStdout(), names)
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func printDrafted(cmd *cobra.Command, opts *options, players []parser.DraftedPlayer) error {
	if players == nil {
		players = []parser.DraftedPlayer{}
	}
	if opts.asJSON {
		return writeJSON(cmd.OutOrStdout(), players)
	}
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Name", "Position", "Team"})
	for _, p := range players {
		t.AppendRow(table.Row{p.Name, p.Position, p.Team})
	}
	t.Render()
	return nil
}
