package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fortuna/draftlens/internal/browser"
	"github.com/fortuna/draftlens/internal/config"
	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/logger"
	"github.com/fortuna/draftlens/internal/parser"
	"github.com/fortuna/draftlens/internal/parser/sites"
)

type options struct {
	url      string
	file     string
	live     bool
	headless bool
	required int
	settle   time.Duration
	timeout  time.Duration
	asJSON   bool
	logLevel string

	cfg *config.Config
}

// NewRootCmd builds the draftctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "draftctl",
		Short:         "draftctl runs the draft page parsers against a saved page or a live browser.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.IsDev(), opts.logLevel)
			opts.cfg = config.Load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.url, "url", "", "URL of the draft page, used for parser selection and --live navigation.")
	flags.StringVar(&opts.file, "file", "", "Saved HTML of a draft page to parse offline.")
	flags.BoolVar(&opts.live, "live", false, "Open --url in Chrome instead of reading --file.")
	flags.BoolVar(&opts.headless, "headless", true, "Run Chrome headless with --live.")
	flags.IntVar(&opts.required, "required", 30, "Number of available names to collect.")
	flags.DurationVar(&opts.settle, "settle", 0, "Override the settle delay after scrolls and filter changes.")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Overall timeout of the command.")
	flags.BoolVar(&opts.asJSON, "json", false, "Print JSON.")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level.")

	root.AddCommand(
		newParsersCmd(opts),
		newRowsCmd(opts),
		newNamesCmd(opts),
		newDraftedCmd(opts),
		newRankCmd(opts),
	)
	return root
}

// ExecuteContext runs the command tree and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) timing(cmd *cobra.Command) parser.Timing {
	t := parser.DefaultTiming()
	if o.cfg != nil {
		t = o.cfg.Timing()
	}
	if cmd.Flags().Changed("settle") {
		t.Settle = o.settle
		t.FilterSettle = o.settle
	}
	return t
}

// session is an opened draft page with its parser.
type session struct {
	page   dom.Page
	parser parser.SiteParser
	close  func()
}

func (o *options) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	page, closer, err := o.page(ctx)
	if err != nil {
		return nil, err
	}

	p, ok := sites.NewManager(page, o.timing(cmd)).ParserForURL(page.URL())
	if !ok {
		closer()
		return nil, fmt.Errorf("no parser for %q", page.URL())
	}
	logger.Log.Debug().Str("parser", p.Name()).Str("url", page.URL()).Msg("parser selected")
	return &session{page: page, parser: p, close: closer}, nil
}

func (o *options) page(ctx context.Context) (dom.Page, func(), error) {
	if o.url == "" {
		return nil, nil, errors.New("--url is required")
	}

	if o.live {
		loadDelay := 2 * time.Second
		if o.cfg != nil {
			loadDelay = o.cfg.PageLoadDelay
		}
		b, err := browser.New(ctx, browser.Options{Headless: o.headless, LoadDelay: loadDelay})
		if err != nil {
			return nil, nil, err
		}
		page, err := b.Open(ctx, o.url)
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		return page, func() {
			page.Close()
			b.Close()
		}, nil
	}

	if o.file == "" {
		return nil, nil, errors.New("--file is required without --live")
	}
	markup, err := os.ReadFile(o.file)
	if err != nil {
		return nil, nil, fmt.Errorf("read page: %w", err)
	}
	f, err := dom.NewFixture(o.url, string(markup))
	if err != nil {
		return nil, nil, err
	}
	return f, func() {}, nil
}

// run opens the page, applies the timeout and hands the session to fn.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	s, err := o.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	return fn(ctx, s)
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	return t
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
