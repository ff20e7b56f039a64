package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/draftlens/internal/cache"
	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/insights"
	"github.com/fortuna/draftlens/internal/parser"
	"github.com/fortuna/draftlens/internal/parser/sites"
	"github.com/fortuna/draftlens/internal/store"
	"github.com/fortuna/draftlens/internal/store/repository"
)

type fakeInsights struct {
	mu        sync.Mutex
	token     string
	lookups   []string
	picks     []insights.PickRequest
	recommend error
}

func (f *fakeInsights) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeInsights) Player(ctx context.Context, name, scoring string) (*insights.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, name)
	return &insights.Insight{Name: name, Rank: len(f.lookups)}, nil
}

func (f *fakeInsights) Recommend(ctx context.Context, in insights.PickRequest) (*insights.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.picks = append(f.picks, in)
	if f.recommend != nil {
		return nil, f.recommend
	}
	return &insights.Recommendation{Pick: insights.Insight{Name: in.Available[0], Rank: 1}}, nil
}

type fakeSessions struct{ session *store.Session }

func (f *fakeSessions) Active(ctx context.Context) (*store.Session, error) {
	if f.session == nil {
		return nil, repository.ErrNoSession
	}
	return f.session, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) GetJSON(ctx context.Context, key string, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, v)
}

func (m *memCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = raw
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	boards   []string
	insights []string
}

func (f *fakePublisher) PublishBoard(ctx context.Context, site string, board interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards = append(f.boards, site)
	return nil
}

func (f *fakePublisher) PublishInsight(ctx context.Context, site string, insight interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights = append(f.insights, site)
	return nil
}

type memSnapshots struct {
	items []*store.Snapshot
}

func (m *memSnapshots) Record(ctx context.Context, s *store.Snapshot) error {
	s.ID = int64(len(m.items) + 1)
	m.items = append(m.items, s)
	return nil
}

func (m *memSnapshots) Latest(ctx context.Context, site string) (*store.Snapshot, error) {
	if len(m.items) == 0 {
		return nil, repository.ErrNoSnapshot
	}
	return m.items[len(m.items)-1], nil
}

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) Broadcast(kind string, payload interface{}) {
	r.mu.Lock()
	r.kinds = append(r.kinds, kind)
	r.mu.Unlock()
}

type harness struct {
	page      *dom.Fixture
	ctrl      *Controller
	insights  *fakeInsights
	sessions  *fakeSessions
	cache     *memCache
	publisher *fakePublisher
	snapshots *memSnapshots
	broadcast *recorder
}

const sleeperURL = "https://sleeper.com/draft/nfl/1048273645"

const sleeperPage = `<div class="draft-player-list"><div class="list-scroll">
	<div class="player-row" data-dl-top="0"><div class="player-name"><span class="name">Bijan Robinson</span></div></div>
	<div class="player-row" data-dl-top="40"><div class="player-name"><span class="name">Jahmyr Gibbs</span></div></div>
	<div class="player-row" data-dl-top="80"><div class="player-name"><span class="name"></span></div></div>
</div></div>
<div class="roster-panel"><div class="roster-scroll">
	<div class="roster-player"><span class="name">Christian McCaffrey</span></div>
</div></div>`

func newHarness(t *testing.T, url, markup string) *harness {
	t.Helper()
	f, err := dom.NewFixture(url, markup)
	require.NoError(t, err)

	timing := parser.DefaultTiming()
	timing.Settle = time.Millisecond
	timing.FilterSettle = time.Millisecond
	timing.GestureInterval = 0

	h := &harness{
		page:      f,
		insights:  &fakeInsights{},
		sessions:  &fakeSessions{session: &store.Session{ID: 1, Token: "tok"}},
		cache:     &memCache{},
		publisher: &fakePublisher{},
		snapshots: &memSnapshots{},
		broadcast: &recorder{},
	}
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.TeamContext = "slot 4 of 12"
	h.ctrl = New(f, sites.NewManager(f, timing), Deps{
		Insights:    h.insights,
		Sessions:    h.sessions,
		Cache:       h.cache,
		Publisher:   h.publisher,
		Snapshots:   h.snapshots,
		Broadcaster: h.broadcast,
	}, cfg)
	h.ctrl.now = func() time.Time { return time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC) }
	return h
}

func TestTick_AttachesActions(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	ctx := context.Background()

	n, err := h.ctrl.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, h.page.Count(dom.ActionSelector))

	// a second tick finds the controls in place
	_, err = h.ctrl.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.page.Count(dom.ActionSelector))

	names, err := h.ctrl.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bijan Robinson", "Jahmyr Gibbs"}, names)
}

func TestTick_NoParser(t *testing.T) {
	h := newHarness(t, "https://www.nfl.com/draft", sleeperPage)

	_, err := h.ctrl.Tick(context.Background())

	assert.ErrorIs(t, err, ErrNoParser)
	assert.Zero(t, h.page.Count(dom.ActionSelector))
}

func TestTick_FollowsNavigation(t *testing.T) {
	h := newHarness(t, "https://sleeper.com/leagues/1048273645", sleeperPage)
	ctx := context.Background()

	_, err := h.ctrl.Tick(ctx)
	assert.ErrorIs(t, err, ErrNoParser)

	h.page.SetURL(sleeperURL)
	p, err := h.ctrl.Parser()
	require.NoError(t, err)
	assert.Equal(t, "sleeper", p.Name())

	_, err = h.ctrl.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.page.Count(dom.ActionSelector))

	h.page.SetURL("https://fantasy.espn.com/football/draft?leagueId=1")
	p, err = h.ctrl.Parser()
	require.NoError(t, err)
	assert.Equal(t, "espn", p.Name())
}

func TestAction_RequestsInsightCacheFirst(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	_, err := h.ctrl.Tick(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.page.Activate(".player-row"))
	require.NoError(t, h.page.Activate(".player-row"))

	assert.Equal(t, []string{"Bijan Robinson"}, h.insights.lookups)
	assert.Equal(t, "tok", h.insights.token)
	assert.Equal(t, []string{KindInsight, KindInsight}, h.broadcast.kinds)
	assert.Equal(t, []string{"sleeper", "sleeper"}, h.publisher.insights)

	var cached insights.Insight
	require.NoError(t, h.cache.GetJSON(context.Background(), cache.InsightKey("Bijan Robinson", "ppr"), &cached))
	assert.Equal(t, "Bijan Robinson", cached.Name)
}

func TestPlayerInsight_RequiresSession(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	h.sessions.session = nil

	_, err := h.ctrl.PlayerInsight(context.Background(), "sleeper", "Bijan Robinson")

	assert.ErrorIs(t, err, repository.ErrNoSession)
	assert.Empty(t, h.insights.lookups)
}

func TestRefresh_PlainNameSite(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	ctx := context.Background()

	board, err := h.ctrl.Refresh(ctx, 5)

	require.NoError(t, err)
	assert.Equal(t, "sleeper", board.Site)
	assert.Equal(t, sleeperURL, board.URL)
	assert.Equal(t, []string{"Bijan Robinson", "Jahmyr Gibbs"}, board.Available)
	assert.Equal(t, []parser.DraftedPlayer{{Name: "Christian McCaffrey"}}, board.Drafted)
	assert.Equal(t, "Bijan Robinson", board.Recommendation.Pick.Name)

	require.Len(t, h.insights.picks, 1)
	pick := h.insights.picks[0]
	assert.Equal(t, []string{"Christian McCaffrey"}, pick.DraftedNames)
	assert.Nil(t, pick.DraftedPlayers)
	assert.Equal(t, "ppr", pick.ScoringType)
	assert.Equal(t, "slot 4 of 12", pick.TeamContext)

	assert.Equal(t, []string{"sleeper"}, h.publisher.boards)
	assert.Equal(t, []string{KindBoard}, h.broadcast.kinds)
	require.Len(t, h.snapshots.items, 1)
	assert.JSONEq(t, `[{"name":"Christian McCaffrey"}]`, string(h.snapshots.items[0].Drafted))

	got, err := h.ctrl.Board(ctx)
	require.NoError(t, err)
	assert.Same(t, board, got)
}

func TestRefresh_AbbreviationSite(t *testing.T) {
	h := newHarness(t, "https://fantasy.espn.com/football/draft?leagueId=1", `<div class="players-table">
		<div role="row" data-dl-top="10"><span class="playerinfo__playername">Ja'Marr Chase</span></div>
	</div>
	<div class="roster-module"><div class="roster-list"><div class="roster-slot">
		<span class="playerinfo__playername">J. Jefferson</span>
		<span class="playerinfo__playerteam">Min</span>
		<span class="playerinfo__playerpos">WR</span>
	</div></div></div>`)

	board, err := h.ctrl.Refresh(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, "espn", board.Site)
	require.Len(t, h.insights.picks, 1)
	assert.Equal(t, []parser.DraftedPlayer{{Name: "J. Jefferson", Position: "WR", Team: "Min"}}, h.insights.picks[0].DraftedPlayers)
	assert.Nil(t, h.insights.picks[0].DraftedNames)
}

func TestRefresh_RequiresSession(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	h.sessions.session = nil

	_, err := h.ctrl.Refresh(context.Background(), 5)

	assert.ErrorIs(t, err, repository.ErrNoSession)
	assert.Empty(t, h.page.Calls())
	assert.Empty(t, h.insights.picks)
}

func TestRefresh_RecommendFailure(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	h.insights.recommend = &insights.APIError{Status: 503}

	_, err := h.ctrl.Refresh(context.Background(), 5)

	var apiErr *insights.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Empty(t, h.snapshots.items)
	assert.Empty(t, h.broadcast.kinds)

	_, err = h.ctrl.Board(context.Background())
	assert.ErrorIs(t, err, ErrNoBoard)
}

func TestBoard_FallsBackToSnapshot(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	h.snapshots.items = append(h.snapshots.items, &store.Snapshot{
		ID:             7,
		Site:           "yahoo",
		Available:      []string{"Drake London"},
		Drafted:        json.RawMessage(`[{"name":"Garrett Wilson"}]`),
		Recommendation: json.RawMessage(`{"pick":{"name":"Drake London","rank":14}}`),
	})

	board, err := h.ctrl.Board(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "yahoo", board.Site)
	assert.Equal(t, []parser.DraftedPlayer{{Name: "Garrett Wilson"}}, board.Drafted)
	assert.Equal(t, 14, board.Recommendation.Pick.Rank)
}

func TestStart_PollsUntilCancelled(t *testing.T) {
	h := newHarness(t, sleeperURL, sleeperPage)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.ctrl.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		h.ctrl.pageMu.Lock()
		defer h.ctrl.pageMu.Unlock()
		return h.page.Count(dom.ActionSelector) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}
}
