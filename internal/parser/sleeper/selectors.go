package sleeper

// Sleeper draft board selectors.

var playerContainers = []string{
	".draft-player-list",
	".player-rankings",
}

const playerNameElements = ".player-name"

var playerNameSelectors = []string{
	".player-name .name",
	".player-name",
}

var actionContainers = []string{".player-meta"}

// The player list scrolls natively.
const scrollContainer = ".draft-player-list .list-scroll"

// View controls.
const (
	searchInput  = ".player-search input"
	allPositions = `.position-filters [data-position="ALL"]`
)

// Roster panel. Entries carry full player names only.
const (
	rosterTab   = `.draft-tabs [data-tab="roster"]`
	rosterPanel = ".roster-panel"
	rosterList  = ".roster-panel .roster-scroll"
	rosterEntry = ".roster-panel .roster-player"
	rosterName  = ".name"
)
