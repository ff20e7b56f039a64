// Package espn parses the ESPN fantasy football draft room.
package espn

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/parser"
)

// Name is the site label.
const Name = "espn"

var hosts = []string{"fantasy.espn.com"}

var layout = parser.Layout{
	Containers:       playerContainers,
	NameElements:     playerNameElements,
	NameSelectors:    playerNameSelectors,
	ActionContainers: actionContainers,
	ActionLabel:      "i",
	ActionTitle:      "Player insight",
}

// Parser implements parser.SiteParser for ESPN.
type Parser struct {
	page   dom.Page
	timing parser.Timing
}

// New creates an ESPN parser over page.
func New(page dom.Page, timing parser.Timing) *Parser {
	return &Parser{page: page, timing: timing}
}

// Name implements parser.SiteParser.
func (p *Parser) Name() string { return Name }

// CanParse implements parser.SiteParser.
func (p *Parser) CanParse(url string) bool {
	return parser.MatchURL(url, hosts, "draft")
}

// UsesDraftAbbreviations implements parser.SiteParser.
func (p *Parser) UsesDraftAbbreviations() bool { return true }

// PlayerRows implements parser.SiteParser.
func (p *Parser) PlayerRows(ctx context.Context) ([]parser.Row, error) {
	return parser.QueryRows(ctx, p.page, layout)
}

// AvailableNames implements parser.SiteParser.
func (p *Parser) AvailableNames(ctx context.Context, required int) ([]string, error) {
	if err := p.normalize(ctx); err != nil {
		return []string{}, err
	}
	return parser.CollectNames(ctx, Name, p.timing, required, parser.List{
		Read: func(ctx context.Context) ([]string, error) {
			rows, err := p.PlayerRows(ctx)
			return parser.RowNames(rows), err
		},
		Advance: p.scrollDown,
		Reset:   p.scrollToTop,
	})
}

// DraftedPlayers implements parser.SiteParser.
func (p *Parser) DraftedPlayers(ctx context.Context) ([]parser.DraftedPlayer, error) {
	if err := parser.EnsureVisible(ctx, p.page, Name, rosterPanel, rosterTab, p.timing.FilterSettle); err != nil {
		return []parser.DraftedPlayer{}, err
	}
	return parser.CollectPanel(ctx, p.page, Name, p.timing, parser.Panel{
		Selector: rosterList,
		Read:     p.readRoster,
	})
}

func (p *Parser) readRoster(ctx context.Context) ([]parser.DraftedPlayer, error) {
	doc, err := p.page.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var players []parser.DraftedPlayer
	doc.Find(rosterEntry).Each(func(_ int, s *goquery.Selection) {
		name := parser.CleanText(s.Find(rosterName))
		if name == "" {
			return
		}
		players = append(players, parser.DraftedPlayer{
			Name:     name,
			Position: parser.CleanText(s.Find(rosterPos)),
			Team:     parser.CleanText(s.Find(rosterTeam)),
		})
	})
	return players, nil
}

// normalize clears the search box and filters and returns the table to the
// top. Every control is optional.
func (p *Parser) normalize(ctx context.Context) error {
	parser.Skipped(Name, "clear search", p.page.ClearInput(ctx, searchInput))
	parser.Skipped(Name, "all positions", p.page.Click(ctx, allPositions))
	parser.Skipped(Name, "available only", p.page.Click(ctx, availableOnly))
	if err := dom.Settle(ctx, p.timing.FilterSettle); err != nil {
		return err
	}
	parser.Skipped(Name, "scroll to top", p.scrollToTop(ctx))
	return dom.Settle(ctx, p.timing.Settle)
}

// scrollDown drags the scrollbar thumb down by DragDistance.
func (p *Parser) scrollDown(ctx context.Context) error {
	face, err := p.page.Bounds(ctx, scrollbarFace)
	if err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			return parser.ErrNoScroll
		}
		return err
	}
	if track, err := p.page.Bounds(ctx, scrollbarTrack); err == nil && track.Height > 0 {
		if face.Y+face.Height >= track.Y+track.Height {
			return parser.ErrNoScroll
		}
	}

	from := face.Center()
	to := dom.Point{X: from.X, Y: from.Y + p.timing.DragDistance}
	return p.page.Dispatch(ctx, dom.Drag(from, to, p.timing.GestureSteps, p.timing.GestureInterval))
}

// scrollToTop drags the scrollbar thumb to the top of its track.
func (p *Parser) scrollToTop(ctx context.Context) error {
	face, err := p.page.Bounds(ctx, scrollbarFace)
	if err != nil {
		return err
	}
	track, err := p.page.Bounds(ctx, scrollbarTrack)
	if err != nil {
		return err
	}
	if face.Y <= track.Y {
		return nil
	}

	from := face.Center()
	to := dom.Point{X: from.X, Y: track.Y + face.Height/2}
	return p.page.Dispatch(ctx, dom.Drag(from, to, p.timing.GestureSteps, p.timing.GestureInterval))
}
