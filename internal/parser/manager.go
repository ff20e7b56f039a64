package parser

import "context"

// Manager holds the registered parsers in precedence order. The first
// parser whose CanParse matches a URL is the active one; predicates are not
// checked for overlap.
type Manager struct {
	parsers []SiteParser
}

// NewManager creates a manager over parsers in registration order.
func NewManager(parsers ...SiteParser) *Manager {
	list := make([]SiteParser, 0, len(parsers))
	for _, p := range parsers {
		if p != nil {
			list = append(list, p)
		}
	}
	return &Manager{parsers: list}
}

// Parsers returns the registered parsers in order.
func (m *Manager) Parsers() []SiteParser {
	out := make([]SiteParser, len(m.parsers))
	copy(out, m.parsers)
	return out
}

// ParserForURL returns the first parser that can parse url.
func (m *Manager) ParserForURL(url string) (SiteParser, bool) {
	for _, p := range m.parsers {
		if p.CanParse(url) {
			return p, true
		}
	}
	return nil, false
}

// PlayerRows returns the rows of the parser for url, or no rows when no
// parser matches.
func (m *Manager) PlayerRows(ctx context.Context, url string) ([]Row, error) {
	p, ok := m.ParserForURL(url)
	if !ok {
		return []Row{}, nil
	}
	return p.PlayerRows(ctx)
}
