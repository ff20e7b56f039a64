// Package sites registers the supported draft sites.
package sites

import (
	"github.com/fortuna/draftlens/internal/dom"
	"github.com/fortuna/draftlens/internal/parser"
	"github.com/fortuna/draftlens/internal/parser/espn"
	"github.com/fortuna/draftlens/internal/parser/sleeper"
	"github.com/fortuna/draftlens/internal/parser/yahoo"
)

// Parsers returns one parser per supported site bound to page, in match
// order.
func Parsers(page dom.Page, timing parser.Timing) []parser.SiteParser {
	return []parser.SiteParser{
		espn.New(page, timing),
		sleeper.New(page, timing),
		yahoo.New(page, timing),
	}
}

// NewManager returns a manager holding every supported site.
func NewManager(page dom.Page, timing parser.Timing) *parser.Manager {
	return parser.NewManager(Parsers(page, timing)...)
}
