package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fortuna/draftlens/internal/insights"
)

func newRankCmd(opts *options) *cobra.Command {
	var (
		baseURL string
		token   string
		scoring string
	)

	cmd := &cobra.Command{
		Use:   "rank [--required N] [--token <token>]",
		Short: "Collects the available player names and prints them ranked by the insights backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, timeout := baseURL, time.Duration(0)
			if opts.cfg != nil {
				if base == "" {
					base = opts.cfg.InsightsAPIBase
				}
				if scoring == "" {
					scoring = opts.cfg.ScoringType
				}
				timeout = opts.cfg.InsightsTimeout
			}
			client := insights.New(base, timeout)
			client.SetToken(token)

			return opts.run(cmd, func(ctx context.Context, s *session) error {
				names, err := s.parser.AvailableNames(ctx, opts.required)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return errors.New("no available players on the page")
				}

				res, err := client.Rank(ctx, insights.RankRequest{Names: names, ScoringType: scoring})
				if err != nil {
					return err
				}
				return printRanking(cmd, opts, res.Players)
			})
		},
	}

	cmd.Flags().StringVar(&baseURL, "insights-url", "", "Insights backend base URL, INSIGHTS_API_BASE when empty.")
	cmd.Flags().StringVar(&token, "token", os.Getenv("INSIGHTS_TOKEN"), "Session token sent to the insights backend.")
	cmd.Flags().StringVar(&scoring, "scoring", "", "Scoring type, SCORING_TYPE when empty.")
	return cmd
}

func printRanking(cmd *cobra.Command, opts *options, players []insights.Insight) error {
	if players == nil {
		players = []insights.Insight{}
	}
	if opts.asJSON {
		return writeJSON(cmd.OutOrStdout(), players)
	}
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Rank", "Name", "Position", "Team", "Tier", "ADP", "Projected"})
	for _, p := range players {
		t.AppendRow(table.Row{p.Rank, p.Name, p.Position, p.Team, p.Tier, p.ADP, p.ProjectedPoints})
	}
	t.Render()
	return nil
}
