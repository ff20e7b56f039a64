package commands

import (
	"errors"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fortuna/draftlens/internal/parser"
	"github.com/fortuna/draftlens/internal/parser/sites"
)

type parserMatch struct {
	Name              string `json:"name"`
	Matches           bool   `json:"matches"`
	DraftAbbreviation bool   `json:"draft_abbreviations"`
}

// matchParsers lists the registered parsers and flags the one the manager
// picks for url.
func matchParsers(manager *parser.Manager, url string) []parserMatch {
	active, ok := manager.ParserForURL(url)

	parsers := manager.Parsers()
	out := make([]parserMatch, 0, len(parsers))
	for _, p := range parsers {
		out = append(out, parserMatch{
			Name:              p.Name(),
			Matches:           ok && p == active,
			DraftAbbreviation: p.UsesDraftAbbreviations(),
		})
	}
	return out
}

func newParsersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parsers [url]",
		Short: "Lists the registered parsers in match order and which one handles a URL.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := opts.url
			if len(args) == 1 {
				url = args[0]
			}
			if url == "" {
				return errors.New("a URL argument or --url is required")
			}

			// CanParse only looks at the URL, no page is needed
			out := matchParsers(sites.NewManager(nil, opts.timing(cmd)), url)

			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			t := newTable(cmd)
			t.AppendHeader(table.Row{"Parser", "Match", "Abbreviations"})
			for _, m := range out {
				t.AppendRow(table.Row{m.Name, m.Matches, m.DraftAbbreviation})
			}
			t.Render()
			return nil
		},
	}
}
