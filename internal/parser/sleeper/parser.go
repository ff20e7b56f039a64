// Package sleeper parses the Sleeper draft board.
package sleeper

import (
	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/parser"
)

// Name is the site label.
const Name = "sleeper"

var hosts = []string{"sleeper.com", "sleeper.app"}

// Parser implements parser.SiteParser for Sleeper. The player list and the
// roster both scroll natively.
type Parser struct {
	*parser.NativeSite
}

// New creates a Sleeper parser over page.
func New(page dom.Page, timing parser.Timing) *Parser {
	return &Parser{NativeSite: &parser.NativeSite{
		Site:   Name,
		Page:   page,
		Timing: timing,
		Layout: parser.Layout{
			Containers:       playerContainers,
			NameElements:     playerNameElements,
			NameSelectors:    playerNameSelectors,
			ActionContainers: actionContainers,
			ActionLabel:      "i",
			ActionTitle:      "Player insight",
		},
		List:         scrollContainer,
		Search:       searchInput,
		AllPositions: allPositions,
		Roster: parser.Roster{
			Tab:   rosterTab,
			Panel: rosterPanel,
			List:  rosterList,
			Entry: rosterEntry,
			Name:  rosterName,
		},
	}}
}

// Name implements parser.SiteParser.
func (p *Parser) Name() string { return Name }

// CanParse implements parser.SiteParser.
func (p *Parser) CanParse(url string) bool {
	return parser.MatchURL(url, hosts, "/draft/")
}

// UsesDraftAbbreviations implements parser.SiteParser. The roster shows
// full names.
func (p *Parser) UsesDraftAbbreviations() bool { return false }
