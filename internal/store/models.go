package store

import (
	"encoding/json"
	"time"
)

// Session is the signed-in user of the insights backend.
type Session struct {
	ID        int64           `json:"id"`
	Token     string          `json:"-"`
	Profile   json.RawMessage `json:"profile"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Snapshot is one recorded draft board.
type Snapshot struct {
	ID             int64           `json:"id"`
	Site           string          `json:"site"`
	URL            string          `json:"url"`
	Available      []string        `json:"available"`
	Drafted        json.RawMessage `json:"drafted"`
	Recommendation json.RawMessage `json:"recommendation,omitempty"`
	CollectedAt    time.Time       `json:"collected_at"`
	CreatedAt      time.Time       `json:"created_at"`
}
