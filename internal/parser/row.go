package parser

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/fortuna/draftlens/internal/dom"
)

// Row is one rendered player entry. Rows are views over a single read of the
// page and must not be kept past it.
type Row interface {
	// Name returns the player name without any injected controls.
	Name() string
	// AddActionButton mounts one action control in the row. Calling it
	// again on a row that already has a control does nothing.
	AddActionButton(ctx context.Context, onClick func()) error
}

// DefaultRowSelectors are the ancestor strategies tried, in order, to find
// the row that owns a name element.
var DefaultRowSelectors = []string{`[role="row"]`, "tr", `[class*="row"]`}

// Layout describes where a site renders its available players.
type Layout struct {
	// Containers are candidate list containers; the first present wins.
	Containers []string
	// NameElements selects name-bearing elements inside the container.
	NameElements string
	// NameSelectors are tried inside a row by Name, most specific first.
	NameSelectors []string
	// RowSelectors override DefaultRowSelectors when set.
	RowSelectors []string
	// ActionContainers are preferred layout containers for the control.
	ActionContainers []string
	ActionLabel      string
	ActionTitle      string
}

func (l Layout) rowSelectors() []string {
	if len(l.RowSelectors) > 0 {
		return l.RowSelectors
	}
	return DefaultRowSelectors
}

// FindFirst returns the first selector of candidates matching in doc.
func FindFirst(doc *goquery.Selection, candidates []string) (*goquery.Selection, bool) {
	for _, c := range candidates {
		if sel := doc.Find(c).First(); sel.Length() > 0 {
			return sel, true
		}
	}
	return nil, false
}

// QueryRows reads a fresh snapshot of page and returns one row per unique
// row ancestor of the layout's name elements, ordered by top coordinate.
func QueryRows(ctx context.Context, page dom.Page, layout Layout) ([]Row, error) {
	doc, err := page.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	container, ok := FindFirst(doc.Selection, layout.Containers)
	if !ok {
		return []Row{}, nil
	}

	type placed struct {
		sel *goquery.Selection
		top float64
	}

	seen := make(map[*html.Node]bool)
	var found []placed
	container.Find(layout.NameElements).Each(func(_ int, el *goquery.Selection) {
		row := rowAncestor(el, container, layout.rowSelectors())
		node := row.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true

		top, ok := dom.Top(row)
		if !ok {
			top, ok = dom.Top(el)
		}
		if !ok {
			top = math.Inf(1)
		}
		found = append(found, placed{sel: row, top: top})
	})

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].top < found[j].top
	})

	rows := make([]Row, 0, len(found))
	for _, p := range found {
		rows = append(rows, &ElementRow{page: page, root: p.sel, layout: layout})
	}
	return rows, nil
}

func rowAncestor(el, container *goquery.Selection, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if row := el.ParentsFilteredUntilSelection(s, container).First(); row.Length() > 0 {
			return row
		}
	}
	return el
}

// RowNames returns the non-empty names of rows in order.
func RowNames(rows []Row) []string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if n := r.Name(); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// ElementRow is the Row implementation shared by all sites.
type ElementRow struct {
	page   dom.Page
	root   *goquery.Selection
	layout Layout
}

// Root returns the row element.
func (r *ElementRow) Root() *goquery.Selection {
	return r.root
}

// Name implements Row.
func (r *ElementRow) Name() string {
	for _, s := range r.layout.NameSelectors {
		el := r.root.Find(s).First()
		if el.Length() == 0 {
			continue
		}
		if text := CleanText(el); text != "" {
			return text
		}
	}
	return CleanText(r.root)
}

// AddActionButton implements Row.
func (r *ElementRow) AddActionButton(ctx context.Context, onClick func()) error {
	if r.root.Find(dom.ActionSelector).Length() > 0 {
		return nil
	}
	id, ok := dom.NodeID(r.root)
	if !ok {
		return nil
	}

	anchor := ""
	for _, s := range r.layout.NameSelectors {
		if r.root.Find(s).Length() > 0 {
			anchor = s
			break
		}
	}

	err := r.page.Mount(ctx, dom.Mount{
		Row:        dom.NodeSelector(id),
		Containers: r.layout.ActionContainers,
		Anchor:     anchor,
		Label:      r.layout.ActionLabel,
		Title:      r.layout.ActionTitle,
	}, onClick)
	if errors.Is(err, dom.ErrNotFound) {
		return nil
	}
	return err
}

// CleanText returns the whitespace-normalized text of the first element in
// s, read from a copy with injected action controls removed.
func CleanText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	clone := s.First().Clone()
	clone.Find(dom.ActionSelector).Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}
