package yahoo

// Yahoo draft client selectors.

var playerContainers = []string{
	"#player-listing",
	".ys-player-listing",
}

const playerNameElements = ".ys-player-name"

var playerNameSelectors = []string{
	".ys-player-name a",
	".ys-player-name",
}

var actionContainers = []string{"td.ys-player-cell"}

const scrollContainer = "#player-listing .ys-scroll"

const (
	searchInput  = "#player-search input"
	allPositions = `#position-filter button[data-pos="ALL"]`
)

const (
	rosterTab   = `#draft-nav [data-tab="my-team"]`
	rosterPanel = "#my-team"
	rosterList  = "#my-team .ys-roster-scroll"
	rosterEntry = "#my-team .ys-roster-player"
	rosterName  = ".name"
)
