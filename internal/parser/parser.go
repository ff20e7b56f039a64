// Package parser holds the site-parser contract shared by every supported
// draft room: row extraction, bounded scroll-and-collect loops and the
// manager that picks the parser for a page.
package parser

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/logger"
)

// ErrNoScroll is returned by a scroll step when the list cannot move any
// further: the scroll widget is missing, the list does not overflow, or the
// end of the content was reached.
var ErrNoScroll = errors.New("list cannot scroll further")

// SiteParser is implemented once per supported draft site.
type SiteParser interface {
	// Name is the site label.
	Name() string
	// CanParse reports whether the parser handles the page at url.
	CanParse(url string) bool
	// PlayerRows returns the rendered available-player rows ordered by
	// vertical position. A missing container yields no rows.
	PlayerRows(ctx context.Context) ([]Row, error)
	// AvailableNames collects up to required unique names in first-seen
	// order, scrolling the list to reveal more.
	AvailableNames(ctx context.Context, required int) ([]string, error)
	// DraftedPlayers collects the entries of the user's roster panel.
	DraftedPlayers(ctx context.Context) ([]DraftedPlayer, error)
	// UsesDraftAbbreviations reports whether the roster view only exposes
	// abbreviated names with position and team.
	UsesDraftAbbreviations() bool
}

// DraftedPlayer is one roster entry. Plain-name sites only set Name.
type DraftedPlayer struct {
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	Team     string `json:"team,omitempty"`
}

func (p DraftedPlayer) key() string {
	return strings.ToLower(p.Name + "|" + p.Position + "|" + p.Team)
}

// DraftedNames returns the names of players in order.
func DraftedNames(players []DraftedPlayer) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return names
}

// Timing holds the delays and bounds of the collection loops.
type Timing struct {
	// Settle is waited after every scroll gesture before re-reading.
	Settle time.Duration
	// FilterSettle is waited after view normalization (filters, search).
	FilterSettle time.Duration
	// MaxAttempts bounds every read-scroll loop.
	MaxAttempts int
	// ScrollStep is the offset advanced by one native scroll.
	ScrollStep float64
	// DragDistance is how far one scrollbar drag moves the thumb.
	DragDistance float64
	// GestureSteps and GestureInterval shape synthetic drags.
	GestureSteps    int
	GestureInterval time.Duration
}

// DefaultTiming returns the production timing.
func DefaultTiming() Timing {
	return Timing{
		Settle:          250 * time.Millisecond,
		FilterSettle:    500 * time.Millisecond,
		MaxAttempts:     100,
		ScrollStep:      300,
		DragDistance:    40,
		GestureSteps:    5,
		GestureInterval: 16 * time.Millisecond,
	}
}

func (t Timing) attempts() int {
	if t.MaxAttempts < 1 {
		return 1
	}
	return t.MaxAttempts
}

// MatchURL reports whether raw points at one of hosts (or a subdomain) and
// its path contains every fragment in paths.
func MatchURL(raw string, hosts []string, paths ...string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())

	matched := false
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, p := range paths {
		if !strings.Contains(path, p) {
			return false
		}
	}
	return true
}

// Skipped logs a best-effort step that could not run. Missing anchors are
// expected on third-party pages and only logged at debug level.
func Skipped(site, step string, err error) {
	if err == nil {
		return
	}
	ev := logger.Log.Warn()
	if errors.Is(err, dom.ErrNotFound) || errors.Is(err, ErrNoScroll) {
		ev = logger.Log.Debug()
	}
	ev.Str("parser", site).Str("step", step).Err(err).Msg("step skipped")
}
