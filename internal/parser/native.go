package parser

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/draftlens/internal/dom"
)

// Roster addresses a roster panel whose entries carry plain names.
type Roster struct {
	// Tab reveals the panel when it is not rendered.
	Tab   string
	Panel string
	// List is the scrollable list inside the panel.
	List  string
	Entry string
	// Name is the name element inside an entry.
	Name string
}

// NativeSite implements the row, name and roster operations of a site whose
// lists scroll natively and whose roster shows plain names. Site parsers
// embed it and add Name, CanParse and UsesDraftAbbreviations.
type NativeSite struct {
	Site   string
	Page   dom.Page
	Timing Timing
	Layout Layout

	// List is the natively scrolling player list.
	List string
	// Search and AllPositions reset the list filters. Either may be empty.
	Search       string
	AllPositions string
	Roster       Roster
}

// PlayerRows implements SiteParser.
func (s *NativeSite) PlayerRows(ctx context.Context) ([]Row, error) {
	return QueryRows(ctx, s.Page, s.Layout)
}

// AvailableNames implements SiteParser. Filters are reset best-effort and
// the list is scrolled back to the top before collecting.
func (s *NativeSite) AvailableNames(ctx context.Context, required int) ([]string, error) {
	advance, reset := NativeScroll(s.Page, s.List, s.Timing.ScrollStep)

	if s.Search != "" {
		Skipped(s.Site, "clear search", s.Page.ClearInput(ctx, s.Search))
	}
	if s.AllPositions != "" {
		Skipped(s.Site, "all positions", s.Page.Click(ctx, s.AllPositions))
	}
	if err := dom.Settle(ctx, s.Timing.FilterSettle); err != nil {
		return []string{}, err
	}
	Skipped(s.Site, "scroll to top", reset(ctx))

	return CollectNames(ctx, s.Site, s.Timing, required, List{
		Read: func(ctx context.Context) ([]string, error) {
			rows, err := s.PlayerRows(ctx)
			return RowNames(rows), err
		},
		Advance: advance,
		Reset:   reset,
	})
}

// DraftedPlayers implements SiteParser. Entries only carry Name.
func (s *NativeSite) DraftedPlayers(ctx context.Context) ([]DraftedPlayer, error) {
	if err := EnsureVisible(ctx, s.Page, s.Site, s.Roster.Panel, s.Roster.Tab, s.Timing.FilterSettle); err != nil {
		return []DraftedPlayer{}, err
	}
	return CollectPanel(ctx, s.Page, s.Site, s.Timing, Panel{
		Selector: s.Roster.List,
		Read:     s.readRoster,
	})
}

func (s *NativeSite) readRoster(ctx context.Context) ([]DraftedPlayer, error) {
	doc, err := s.Page.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var players []DraftedPlayer
	doc.Find(s.Roster.Entry).Each(func(_ int, e *goquery.Selection) {
		if name := CleanText(e.Find(s.Roster.Name)); name != "" {
			players = append(players, DraftedPlayer{Name: name})
		}
	})
	return players, nil
}
