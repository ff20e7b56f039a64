// Package controller runs the draft page: it attaches insight actions to
// player rows, collects the board and asks the insights backend for a pick.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fortuna/draftlens/internal/cache"
	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/insights"
	"github.com/fortuna/draftlens/internal/logger"
	"github.com/fortuna/draftlens/internal/parser"
	"github.com/fortuna/draftlens/internal/store"
	"github.com/fortuna/draftlens/internal/store/repository"
)

var (
	// ErrNoParser is returned when no site parser handles the page URL.
	ErrNoParser = errors.New("no parser for page")
	// ErrNoBoard is returned before the first board was collected.
	ErrNoBoard = errors.New("no board collected")
)

// Broadcast message kinds.
const (
	KindBoard   = "board"
	KindInsight = "insight"
)

// Insights is the backend client.
type Insights interface {
	SetToken(token string)
	Player(ctx context.Context, name, scoring string) (*insights.Insight, error)
	Recommend(ctx context.Context, in insights.PickRequest) (*insights.Recommendation, error)
}

// Cache stores insight responses.
type Cache interface {
	GetJSON(ctx context.Context, key string, v interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Publisher publishes draft events.
type Publisher interface {
	PublishBoard(ctx context.Context, site string, board interface{}) error
	PublishInsight(ctx context.Context, site string, insight interface{}) error
}

// Sessions reads the signed-in session.
type Sessions interface {
	Active(ctx context.Context) (*store.Session, error)
}

// Snapshots records boards.
type Snapshots interface {
	Record(ctx context.Context, s *store.Snapshot) error
	Latest(ctx context.Context, site string) (*store.Snapshot, error)
}

// Broadcaster pushes messages to live clients.
type Broadcaster interface {
	Broadcast(kind string, payload interface{})
}

// Deps are the collaborators. Insights and Sessions are required.
type Deps struct {
	Insights    Insights
	Sessions    Sessions
	Cache       Cache
	Publisher   Publisher
	Snapshots   Snapshots
	Broadcaster Broadcaster
}

// Config holds controller configuration
type Config struct {
	PollInterval    time.Duration // Default: 2s
	RefreshInterval time.Duration // 0 disables periodic board refresh
	RequiredCount   int           // Default: 30
	ScoringType     string
	TeamContext     string
	InsightTTL      time.Duration // Default: 1h
	ActionTimeout   time.Duration // Default: 15s
}

// DefaultConfig returns default controller configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:  2 * time.Second,
		RequiredCount: 30,
		ScoringType:   "ppr",
		InsightTTL:    time.Hour,
		ActionTimeout: 15 * time.Second,
	}
}

// Board is one collected view of the draft.
type Board struct {
	Site           string                   `json:"site"`
	URL            string                   `json:"url"`
	Available      []string                 `json:"available"`
	Drafted        []parser.DraftedPlayer   `json:"drafted"`
	Recommendation *insights.Recommendation `json:"recommendation,omitempty"`
	CollectedAt    time.Time                `json:"collected_at"`
}

// PlayerInsight is an insight requested from a row action.
type PlayerInsight struct {
	Site    string            `json:"site"`
	Insight *insights.Insight `json:"insight"`
	Cached  bool              `json:"cached"`
}

// Controller drives one page.
type Controller struct {
	page    dom.Page
	manager *parser.Manager
	deps    Deps
	config  Config
	now     func() time.Time

	// pageMu serializes all page work, the page has a single UI thread.
	pageMu sync.Mutex

	mu      sync.RWMutex
	board   *Board
	baseCtx context.Context
}

// New creates a controller for page.
func New(page dom.Page, manager *parser.Manager, deps Deps, config Config) *Controller {
	def := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.RequiredCount <= 0 {
		config.RequiredCount = def.RequiredCount
	}
	if config.InsightTTL <= 0 {
		config.InsightTTL = def.InsightTTL
	}
	if config.ActionTimeout <= 0 {
		config.ActionTimeout = def.ActionTimeout
	}
	return &Controller{
		page:    page,
		manager: manager,
		deps:    deps,
		config:  config,
		now:     time.Now,
		baseCtx: context.Background(),
	}
}

// Parser returns the parser of the current page.
func (c *Controller) Parser() (parser.SiteParser, error) {
	url := c.page.URL()
	p, ok := c.manager.ParserForURL(url)
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, ErrNoParser)
	}
	return p, nil
}

// Manager returns the parser manager.
func (c *Controller) Manager() *parser.Manager {
	return c.manager
}

// Tick attaches insight actions to the rows currently rendered and returns
// how many rows were seen.
func (c *Controller) Tick(ctx context.Context) (int, error) {
	p, err := c.Parser()
	if err != nil {
		return 0, err
	}

	c.pageMu.Lock()
	defer c.pageMu.Unlock()

	rows, err := p.PlayerRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("query rows: %w", err)
	}

	for _, row := range rows {
		name := row.Name()
		if name == "" {
			continue
		}
		if err := row.AddActionButton(ctx, c.action(p.Name(), name)); err != nil {
			parser.Skipped(p.Name(), "attach action", err)
		}
	}
	return len(rows), nil
}

// Rows returns the names of the rows currently rendered.
func (c *Controller) Rows(ctx context.Context) ([]string, error) {
	p, err := c.Parser()
	if err != nil {
		return nil, err
	}

	c.pageMu.Lock()
	defer c.pageMu.Unlock()

	rows, err := p.PlayerRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	return parser.RowNames(rows), nil
}

func (c *Controller) action(site, name string) func() {
	return func() {
		c.mu.RLock()
		base := c.baseCtx
		c.mu.RUnlock()

		ctx, cancel := context.WithTimeout(base, c.config.ActionTimeout)
		defer cancel()
		if _, err := c.PlayerInsight(ctx, site, name); err != nil {
			logger.Log.Warn().Err(err).Str("parser", site).Str("player", name).Msg("player insight failed")
		}
	}
}

// PlayerInsight returns the insight for one player, cache first, and
// broadcasts it.
func (c *Controller) PlayerInsight(ctx context.Context, site, name string) (*PlayerInsight, error) {
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}

	key := cache.InsightKey(name, c.config.ScoringType)
	out := &PlayerInsight{Site: site}

	if c.deps.Cache != nil {
		var cached insights.Insight
		err := c.deps.Cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			out.Insight, out.Cached = &cached, true
		case !errors.Is(err, cache.ErrMiss):
			logger.Log.Warn().Err(err).Str("key", key).Msg("insight cache read failed")
		}
	}

	if out.Insight == nil {
		insight, err := c.deps.Insights.Player(ctx, name, c.config.ScoringType)
		if err != nil {
			return nil, fmt.Errorf("player insight %q: %w", name, err)
		}
		out.Insight = insight
		if c.deps.Cache != nil {
			if err := c.deps.Cache.SetJSON(ctx, key, insight, c.config.InsightTTL); err != nil {
				logger.Log.Warn().Err(err).Str("key", key).Msg("insight cache write failed")
			}
		}
	}

	if c.deps.Publisher != nil {
		if err := c.deps.Publisher.PublishInsight(ctx, site, out); err != nil {
			logger.Log.Warn().Err(err).Str("parser", site).Msg("failed to publish insight")
		}
	}
	if c.deps.Broadcaster != nil {
		c.deps.Broadcaster.Broadcast(KindInsight, out)
	}
	return out, nil
}

// authorize loads the active session token into the insights client.
func (c *Controller) authorize(ctx context.Context) error {
	s, err := c.deps.Sessions.Active(ctx)
	if err != nil {
		return err
	}
	c.deps.Insights.SetToken(s.Token)
	return nil
}

// Refresh collects required available names and the drafted players, asks
// for a pick recommendation and records, publishes and broadcasts the
// board. A required count of zero or less uses the configured count.
func (c *Controller) Refresh(ctx context.Context, required int) (*Board, error) {
	if required <= 0 {
		required = c.config.RequiredCount
	}
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}
	p, err := c.Parser()
	if err != nil {
		return nil, err
	}

	available, drafted, err := c.collect(ctx, p, required)
	if err != nil {
		return nil, err
	}

	req := insights.NewPickRequest(p, available, drafted, c.config.ScoringType, c.config.TeamContext)
	rec, err := c.deps.Insights.Recommend(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	board := &Board{
		Site:           p.Name(),
		URL:            c.page.URL(),
		Available:      available,
		Drafted:        drafted,
		Recommendation: rec,
		CollectedAt:    c.now().UTC(),
	}

	c.mu.Lock()
	c.board = board
	c.mu.Unlock()

	c.record(ctx, board)
	if c.deps.Publisher != nil {
		if err := c.deps.Publisher.PublishBoard(ctx, board.Site, board); err != nil {
			logger.Log.Warn().Err(err).Str("parser", board.Site).Msg("failed to publish board")
		}
	}
	if c.deps.Broadcaster != nil {
		c.deps.Broadcaster.Broadcast(KindBoard, board)
	}

	logger.Log.Info().
		Str("parser", board.Site).
		Int("available", len(available)).
		Int("drafted", len(drafted)).
		Str("pick", rec.Pick.Name).
		Msg("board refreshed")
	return board, nil
}

func (c *Controller) collect(ctx context.Context, p parser.SiteParser, required int) ([]string, []parser.DraftedPlayer, error) {
	c.pageMu.Lock()
	defer c.pageMu.Unlock()

	available, err := p.AvailableNames(ctx, required)
	if err != nil {
		return nil, nil, fmt.Errorf("available names: %w", err)
	}
	drafted, err := p.DraftedPlayers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("drafted players: %w", err)
	}
	return available, drafted, nil
}

func (c *Controller) record(ctx context.Context, b *Board) {
	if c.deps.Snapshots == nil {
		return
	}
	drafted, err := json.Marshal(b.Drafted)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("failed to encode drafted players")
		return
	}
	snap := &store.Snapshot{
		Site:        b.Site,
		URL:         b.URL,
		Available:   b.Available,
		Drafted:     drafted,
		CollectedAt: b.CollectedAt,
	}
	if b.Recommendation != nil {
		if snap.Recommendation, err = json.Marshal(b.Recommendation); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to encode recommendation")
			return
		}
	}
	if err := c.deps.Snapshots.Record(ctx, snap); err != nil {
		logger.Log.Warn().Err(err).Str("parser", b.Site).Msg("failed to record snapshot")
	}
}

// Board returns the last collected board, falling back to the last
// recorded snapshot.
func (c *Controller) Board(ctx context.Context) (*Board, error) {
	c.mu.RLock()
	b := c.board
	c.mu.RUnlock()
	if b != nil {
		return b, nil
	}
	if c.deps.Snapshots == nil {
		return nil, ErrNoBoard
	}

	snap, err := c.deps.Snapshots.Latest(ctx, "")
	if errors.Is(err, repository.ErrNoSnapshot) {
		return nil, ErrNoBoard
	}
	if err != nil {
		return nil, err
	}
	return boardFromSnapshot(snap)
}

func boardFromSnapshot(s *store.Snapshot) (*Board, error) {
	b := &Board{
		Site:        s.Site,
		URL:         s.URL,
		Available:   s.Available,
		Drafted:     []parser.DraftedPlayer{},
		CollectedAt: s.CollectedAt,
	}
	if len(s.Drafted) > 0 {
		if err := json.Unmarshal(s.Drafted, &b.Drafted); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
		}
	}
	if len(s.Recommendation) > 0 {
		b.Recommendation = &insights.Recommendation{}
		if err := json.Unmarshal(s.Recommendation, b.Recommendation); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
		}
	}
	return b, nil
}

// Start runs the poll loop until ctx is done.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	logger.Log.Info().
		Dur("poll_interval", c.config.PollInterval).
		Dur("refresh_interval", c.config.RefreshInterval).
		Int("required", c.config.RequiredCount).
		Msg("controller started")

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	var refresh <-chan time.Time
	if c.config.RefreshInterval > 0 {
		t := time.NewTicker(c.config.RefreshInterval)
		defer t.Stop()
		refresh = t.C
	}

	c.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("controller stopped")
			return
		case <-ticker.C:
			c.poll(ctx)
		case <-refresh:
			if _, err := c.Refresh(ctx, 0); err != nil && !errors.Is(err, repository.ErrNoSession) && !errors.Is(err, ErrNoParser) {
				logger.Log.Warn().Err(err).Msg("periodic refresh failed")
			}
		}
	}
}

func (c *Controller) poll(ctx context.Context) {
	n, err := c.Tick(ctx)
	switch {
	case errors.Is(err, ErrNoParser):
		logger.Log.Debug().Str("url", c.page.URL()).Msg("no parser for page")
	case err != nil && ctx.Err() == nil:
		logger.Log.Warn().Err(err).Msg("tick failed")
	default:
		logger.Log.Debug().Int("rows", n).Msg("tick")
	}
}
