package insights

import "github.com/fortuna/draftlens/internal/parser"

// Insight is the backend view of one player.
type Insight struct {
	Name            string  `json:"name"`
	Position        string  `json:"position,omitempty"`
	Team            string  `json:"team,omitempty"`
	Rank            int     `json:"rank"`
	Tier            int     `json:"tier,omitempty"`
	ADP             float64 `json:"adp,omitempty"`
	ProjectedPoints float64 `json:"projected_points,omitempty"`
	Summary         string  `json:"summary,omitempty"`
}

// RankRequest asks the backend to rank a set of available players.
type RankRequest struct {
	Names       []string `json:"names"`
	ScoringType string   `json:"scoring_type"`
}

// RankResponse lists players best first.
type RankResponse struct {
	Players []Insight `json:"players"`
}

// PickRequest asks for a pick recommendation. Sites whose roster view only
// shows abbreviated names send DraftedPlayers, the others DraftedNames.
type PickRequest struct {
	Available      []string               `json:"available"`
	DraftedNames   []string               `json:"drafted_names,omitempty"`
	DraftedPlayers []parser.DraftedPlayer `json:"drafted_players,omitempty"`
	ScoringType    string                 `json:"scoring_type"`
	TeamContext    string                 `json:"team_context,omitempty"`
}

// NewPickRequest builds a request in the wire format the parser expects.
func NewPickRequest(p parser.SiteParser, available []string, drafted []parser.DraftedPlayer, scoring, team string) PickRequest {
	req := PickRequest{
		Available:   available,
		ScoringType: scoring,
		TeamContext: team,
	}
	if p != nil && p.UsesDraftAbbreviations() {
		req.DraftedPlayers = drafted
	} else {
		req.DraftedNames = parser.DraftedNames(drafted)
	}
	return req
}

// Recommendation is the suggested pick.
type Recommendation struct {
	Pick         Insight   `json:"pick"`
	Alternatives []Insight `json:"alternatives,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}
