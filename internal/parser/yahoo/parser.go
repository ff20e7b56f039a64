// Package yahoo parses the Yahoo fantasy football draft client.
package yahoo

import (
	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/parser"
)

// Name is the site label.
const Name = "yahoo"

var hosts = []string{"fantasysports.yahoo.com"}

// Parser implements parser.SiteParser for Yahoo. The player table and the
// team panel both scroll natively.
type Parser struct {
	*parser.NativeSite
}

// New creates a Yahoo parser over page.
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
	return parser.MatchURL(url, hosts, "draftclient")
}

// UsesDraftAbbreviations implements parser.SiteParser. The roster shows
// full names.
func (p *Parser) UsesDraftAbbreviations() bool { return false }
