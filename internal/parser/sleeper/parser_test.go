package sleeper

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/parser"
)

const draftURL = "https://sleeper.com/draft/nfl/1048273645"

func fastTiming() parser.Timing {
	t := parser.DefaultTiming()
	t.Settle = time.Millisecond
	t.FilterSettle = time.Millisecond
	t.ScrollStep = 100
	return t
}

// newBoard renders a virtualized list of cap players of which window are
// visible, re-rendered from the scroll offset at 40px per row.
func newBoard(t *testing.T, window, cap int) *dom.Fixture {
	t.Helper()
	f, err := dom.NewFixture(draftURL, `<div class="player-search"><input value="hill"></div>
		<div class="position-filters"><span data-position="ALL">ALL</span></div>
		<div class="draft-player-list"><div class="list-scroll"></div></div>`)
	require.NoError(t, err)

	render := func(top float64) {
		first := int(top) / 40
		var b strings.Builder
		for i := first; i < first+window && i < cap; i++ {
			fmt.Fprintf(&b, `<div class="player-row" data-dl-top="%d">
				<div class="player-name"><span class="name">Player %d</span><span class="player-meta">WR - MIA</span></div>
			</div>`, (i-first)*40, i)
		}
		f.Document().Find(scrollContainer).SetHtml(b.String())
	}
	render(0)
	f.SetScroll(scrollContainer, dom.ScrollState{Height: float64(cap * 40), ClientHeight: float64(window * 40)})
	f.OnScroll = func(f *dom.Fixture, selector string, top float64) { render(top) }
	return f
}

func names(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("Player %d", i))
	}
	return out
}

func TestCanParse(t *testing.T) {
	p := New(nil, fastTiming())

	assert.True(t, p.CanParse(draftURL))
	assert.True(t, p.CanParse("https://sleeper.app/draft/nfl/99"))
	assert.False(t, p.CanParse("https://sleeper.com/leagues/99"))
	assert.False(t, p.CanParse("https://fantasy.espn.com/football/draft"))
	assert.False(t, p.UsesDraftAbbreviations())
}

func TestPlayerRows_UsesNameSpan(t *testing.T) {
	f := newBoard(t, 3, 3)
	p := New(f, fastTiming())

	rows, err := p.PlayerRows(context.Background())

	require.NoError(t, err)
	assert.Equal(t, names(0, 3), parser.RowNames(rows))
}

func TestAvailableNames_ScrollsNatively(t *testing.T) {
	f := newBoard(t, 5, 40)
	p := New(f, fastTiming())

	got, err := p.AvailableNames(context.Background(), 12)

	require.NoError(t, err)
	assert.Equal(t, names(0, 12), got)
	assert.Contains(t, f.Calls(), "clear "+searchInput)
	assert.Contains(t, f.Calls(), "click "+allPositions)

	s, err := f.ScrollState(context.Background(), scrollContainer)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Top)
}

func TestAvailableNames_ShortList(t *testing.T) {
	f := newBoard(t, 5, 8)
	p := New(f, fastTiming())

	got, err := p.AvailableNames(context.Background(), 12)

	require.NoError(t, err)
	assert.Equal(t, names(0, 8), got)
}

func TestDraftedPlayers_PlainNames(t *testing.T) {
	f := newBoard(t, 1, 1)
	f.OnClick = func(f *dom.Fixture, selector string) {
		f.Append("body", `<div class="roster-panel"><div class="roster-scroll">
			<div class="roster-player"><span class="pos">QB</span><span class="name">Josh Allen</span></div>
			<div class="roster-player"><span class="pos">RB</span><span class="name"></span></div>
			<div class="roster-player"><span class="pos">WR</span><span class="name">Tyreek Hill</span></div>
		</div></div>`)
	}
	f.Append(".player-search", `<div class="draft-tabs"><span data-tab="roster">Roster</span></div>`)
	p := New(f, fastTiming())

	drafted, err := p.DraftedPlayers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []parser.DraftedPlayer{{Name: "Josh Allen"}, {Name: "Tyreek Hill"}}, drafted)
}
