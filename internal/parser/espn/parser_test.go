package espn

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

const draftURL = "https://fantasy.espn.com/football/draft?leagueId=123&seasonId=2025&teamId=4"

func fastTiming() parser.Timing {
	t := parser.DefaultTiming()
	t.Settle = time.Millisecond
	t.FilterSettle = time.Millisecond
	t.GestureInterval = 0
	return t
}

// table simulates the virtualized players table: a window of rows starting
// at pos, advanced by every downward drag of the scrollbar thumb.
type table struct {
	f                 *dom.Fixture
	window, step, cap int
	pos               int
}

func (tb *table) render() string {
	var b strings.Builder
	for i := tb.pos; i < tb.pos+tb.window && i < tb.cap; i++ {
		fmt.Fprintf(&b, `<div role="row" class="public_fixedDataTableRow_main" data-dl-top="%d">
			<div class="player-column__athlete">
				<span class="playerinfo__playername"><a href="#">Player %d</a></span>
				<span class="playerinfo__playerteam">Min</span>
			</div>
		</div>`, 200+(i-tb.pos)*40, i)
	}
	return b.String()
}

func (tb *table) faceTop() int {
	if tb.pos+tb.window >= tb.cap {
		return 640
	}
	return 100 + tb.pos*10
}

func (tb *table) sync() {
	doc := tb.f.Document()
	doc.Find(".rows").SetHtml(tb.render())
	doc.Find(".ScrollbarLayout_face").SetAttr(dom.AttrTop, fmt.Sprint(tb.faceTop()))
}

func newTable(t *testing.T, window, step, cap int, scrollbar bool) *table {
	t.Helper()
	bar := ""
	if scrollbar {
		bar = `<div class="ScrollbarLayout_main ScrollbarLayout_mainVertical" data-dl-left="900" data-dl-top="100" data-dl-width="10" data-dl-height="600">
			<div class="ScrollbarLayout_face" data-dl-left="900" data-dl-top="100" data-dl-width="10" data-dl-height="60"></div>
		</div>`
	}
	markup := `<div class="draft-tabs"><button data-tab="roster">My Team</button></div>
		<input class="player-search__input" value="kel">
		<ul class="filterPositions"><li><button data-pos="ALL">All</button></li></ul>
		<div class="players-table">` + bar + `<div class="rows"></div></div>`

	f, err := dom.NewFixture(draftURL, markup)
	require.NoError(t, err)

	tb := &table{f: f, window: window, step: step, cap: cap}
	tb.sync()
	f.OnDispatch = func(f *dom.Fixture, events []dom.PointerEvent) {
		if dom.Delta(events) < 0 {
			tb.pos = 0
		} else {
			tb.pos += tb.step
		}
		tb.sync()
	}
	return tb
}

func players(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("Player %d", i))
	}
	return out
}

func TestCanParse(t *testing.T) {
	p := New(nil, fastTiming())

	assert.True(t, p.CanParse(draftURL))
	assert.True(t, p.CanParse("https://fantasy.espn.com/football/mockdraftlobby/draft"))
	assert.False(t, p.CanParse("https://fantasy.espn.com/football/team?leagueId=1"))
	assert.False(t, p.CanParse("https://sleeper.com/draft/nfl/123"))
	assert.True(t, p.UsesDraftAbbreviations())
	assert.Equal(t, "espn", p.Name())
}

func TestPlayerRows(t *testing.T) {
	tb := newTable(t, 4, 2, 4, true)
	p := New(tb.f, fastTiming())

	rows, err := p.PlayerRows(context.Background())

	require.NoError(t, err)
	assert.Equal(t, players(0, 4), parser.RowNames(rows))
}

func TestAddActionButton_MountsInAthleteColumn(t *testing.T) {
	tb := newTable(t, 2, 2, 2, true)
	p := New(tb.f, fastTiming())
	ctx := context.Background()

	rows, err := p.PlayerRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	clicked := 0
	require.NoError(t, rows[0].AddActionButton(ctx, func() { clicked++ }))
	require.NoError(t, rows[0].AddActionButton(ctx, func() { clicked++ }))

	assert.Equal(t, 1, tb.f.Count(".player-column__athlete "+dom.ActionSelector))
	assert.Equal(t, "Player 0", rows[0].Name())

	require.NoError(t, tb.f.Click(ctx, dom.ActionSelector))
	assert.Equal(t, 1, clicked)
}

func TestAvailableNames_DragsUntilRequired(t *testing.T) {
	tb := newTable(t, 8, 3, 30, true)
	p := New(tb.f, fastTiming())

	names, err := p.AvailableNames(context.Background(), 20)

	require.NoError(t, err)
	assert.Equal(t, players(0, 20), names)
	assert.Equal(t, 0, tb.pos, "table returned to the top")

	calls := tb.f.Calls()
	assert.Contains(t, calls, "clear "+searchInput)
	assert.Contains(t, calls, "click "+allPositions)
	assert.Equal(t, "", tb.f.Document().Find(searchInput).AttrOr("value", "x"))
}

func TestAvailableNames_StopsAtEndOfTable(t *testing.T) {
	tb := newTable(t, 8, 3, 10, true)
	p := New(tb.f, fastTiming())

	names, err := p.AvailableNames(context.Background(), 20)

	require.NoError(t, err)
	assert.Equal(t, players(0, 10), names)
	// one drag down reaches the end of the table, one drag back to the top
	assert.Equal(t, 2, tb.f.CountCalls("drag"))
}

func TestAvailableNames_WithoutScrollbar(t *testing.T) {
	tb := newTable(t, 6, 3, 6, false)
	p := New(tb.f, fastTiming())

	names, err := p.AvailableNames(context.Background(), 20)

	require.NoError(t, err)
	assert.Equal(t, players(0, 6), names)
	assert.Equal(t, 0, tb.f.CountCalls("drag"))
}

func TestAvailableNames_Cancelled(t *testing.T) {
	tb := newTable(t, 8, 3, 30, true)
	p := New(tb.f, fastTiming())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	names, err := p.AvailableNames(ctx, 20)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, names)
}

const rosterHTML = `<div class="roster-module"><div class="roster-list">
	<div class="roster-slot">
		<span class="playerinfo__playername">J. Jefferson</span>
		<span class="playerinfo__playerteam">Min</span>
		<span class="playerinfo__playerpos">WR</span>
	</div>
	<div class="roster-slot"><span class="slot-label">RB</span></div>
	<div class="roster-slot">
		<span class="playerinfo__playername">P. Mahomes</span>
		<span class="playerinfo__playerteam">KC</span>
		<span class="playerinfo__playerpos">QB</span>
	</div>
</div></div>`

func TestDraftedPlayers_RevealsRosterTab(t *testing.T) {
	tb := newTable(t, 2, 2, 2, true)
	tb.f.OnClick = func(f *dom.Fixture, selector string) {
		if selector == rosterTab {
			f.Append("body", rosterHTML)
		}
	}
	p := New(tb.f, fastTiming())

	drafted, err := p.DraftedPlayers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []parser.DraftedPlayer{
		{Name: "J. Jefferson", Position: "WR", Team: "Min"},
		{Name: "P. Mahomes", Position: "QB", Team: "KC"},
	}, drafted)
	assert.Equal(t, 1, tb.f.CountCalls("click "+rosterTab))
}

func TestDraftedPlayers_PanelAlreadyOpen(t *testing.T) {
	tb := newTable(t, 2, 2, 2, true)
	tb.f.Append("body", rosterHTML)
	p := New(tb.f, fastTiming())

	drafted, err := p.DraftedPlayers(context.Background())

	require.NoError(t, err)
	assert.Len(t, drafted, 2)
	assert.Equal(t, 0, tb.f.CountCalls("click"))
}

func TestDraftedPlayers_NoRoster(t *testing.T) {
	f := dom.MustFixture(draftURL, `<div class="players-table"></div>`)
	p := New(f, fastTiming())

	drafted, err := p.DraftedPlayers(context.Background())

	require.NoError(t, err)
	assert.Empty(t, drafted)
}
