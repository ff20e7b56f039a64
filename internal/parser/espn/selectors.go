package espn

// ESPN draft room selectors. ESPN reworks the draft room markup between
// seasons; keep every selector here.

// Available players table.
var playerContainers = []string{
	`div[data-testid="draft-players-table"]`,
	"div.players-table",
	`div[class*="playersTable"]`,
}

const playerNameElements = ".playerinfo__playername"

var playerNameSelectors = []string{
	".playerinfo__playername a",
	".playerinfo__playername",
	".player-name",
}

var actionContainers = []string{
	".playerinfo__playerwrapper",
	".player-column__athlete",
}

// The players table is a fixed data table with its own scrollbar widget
// instead of a scrollable container.
const (
	scrollbarTrack = ".ScrollbarLayout_mainVertical"
	scrollbarFace  = ".ScrollbarLayout_mainVertical .ScrollbarLayout_face"
)

// View controls.
const (
	searchInput   = "input.player-search__input"
	allPositions  = `.filterPositions button[data-pos="ALL"]`
	availableOnly = `.filterAvailability button[data-filter="available"]`
)

// My team panel. The roster shows abbreviated names ("J. Jefferson") with
// team and position in separate cells.
const (
	rosterTab   = `.draft-tabs button[data-tab="roster"]`
	rosterPanel = ".roster-module"
	rosterList  = ".roster-module .roster-list"
	rosterEntry = ".roster-module .roster-slot"
	rosterName  = ".playerinfo__playername"
	rosterTeam  = ".playerinfo__playerteam"
	rosterPos   = ".playerinfo__playerpos"
)
