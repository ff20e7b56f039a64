package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fortuna/draftlens/internal/store"
)

// ErrNoSnapshot is returned when no board was recorded yet.
var ErrNoSnapshot = errors.New("no snapshot recorded")

// SnapshotRepository records collected draft boards
type SnapshotRepository struct {
	db *store.Database
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *store.Database) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Record inserts s and fills in its ID and CreatedAt.
func (r *SnapshotRepository) Record(ctx context.Context, s *store.Snapshot) error {
	drafted := s.Drafted
	if len(drafted) == 0 {
		drafted = json.RawMessage(`[]`)
	}
	var recommendation interface{}
	if len(s.Recommendation) > 0 {
		recommendation = []byte(s.Recommendation)
	}
	available := s.Available
	if available == nil {
		available = []string{}
	}

	err := r.db.DB().QueryRowContext(ctx, `
		INSERT INTO draft_snapshots (site, url, available, drafted, recommendation, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING snapshot_id, created_at
	`, s.Site, s.URL, pq.Array(available), []byte(drafted), recommendation, s.CollectedAt,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot of site, or of any site when site
// is empty.
func (r *SnapshotRepository) Latest(ctx context.Context, site string) (*store.Snapshot, error) {
	query := `
		SELECT snapshot_id, site, url, available, drafted, recommendation, collected_at, created_at
		FROM draft_snapshots
		WHERE ($1 = '' OR site = $1)
		ORDER BY collected_at DESC, snapshot_id DESC
		LIMIT 1
	`

	s := &store.Snapshot{}
	var drafted, recommendation []byte
	err := r.db.DB().QueryRowContext(ctx, query, site).Scan(
		&s.ID, &s.Site, &s.URL, pq.Array(&s.Available), &drafted, &recommendation,
		&s.CollectedAt, &s.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	s.Drafted = drafted
	if len(recommendation) > 0 {
		s.Recommendation = recommendation
	}
	return s, nil
}
