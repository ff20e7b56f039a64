package dom

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Layout attributes read by the fixture in addition to AttrTop.
const (
	AttrLeft   = "data-dl-left"
	AttrWidth  = "data-dl-width"
	AttrHeight = "data-dl-height"
)

// Fixture is an in-memory Page over a goquery tree. Snapshot returns the
// live tree itself, so writes made through Mount are visible to rows read
// earlier. Like a browser page it is meant to be driven from one goroutine
// at a time.
type Fixture struct {
	url string
	doc *goquery.Document

	mu      sync.Mutex
	next    int
	scroll  map[string]ScrollState
	limits  map[string]float64
	actions map[string]func()
	calls   []string

	// OnScroll runs after ScrollTo has updated the offset.
	OnScroll func(f *Fixture, selector string, top float64)
	// OnDispatch runs after a pointer gesture was dispatched.
	OnDispatch func(f *Fixture, events []PointerEvent)
	// OnClick runs after a successful Click.
	OnClick func(f *Fixture, selector string)
}

// NewFixture parses markup into a fixture page located at url.
func NewFixture(url, markup string) (*Fixture, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture HTML: %w", err)
	}
	return &Fixture{
		url:     url,
		doc:     doc,
		scroll:  make(map[string]ScrollState),
		limits:  make(map[string]float64),
		actions: make(map[string]func()),
	}, nil
}

// MustFixture is NewFixture that panics on error.
func MustFixture(url, markup string) *Fixture {
	f, err := NewFixture(url, markup)
	if err != nil {
		panic(err)
	}
	return f
}

// Document returns the live tree.
func (f *Fixture) Document() *goquery.Document {
	return f.doc
}

// SetURL simulates a navigation.
func (f *Fixture) SetURL(url string) {
	f.mu.Lock()
	f.url = url
	f.mu.Unlock()
}

// SetScroll sets the scroll state reported for selector.
func (f *Fixture) SetScroll(selector string, s ScrollState) {
	f.mu.Lock()
	f.scroll[selector] = s
	f.mu.Unlock()
}

// LimitScroll caps the offset ScrollTo can reach for selector, simulating a
// list that stops advancing.
func (f *Fixture) LimitScroll(selector string, max float64) {
	f.mu.Lock()
	f.limits[selector] = max
	f.mu.Unlock()
}

// Calls returns a log of the write operations performed on the page.
func (f *Fixture) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CountCalls returns how many logged calls start with prefix.
func (f *Fixture) CountCalls(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Append adds markup as the last children of every element matching
// selector.
func (f *Fixture) Append(selector, markup string) {
	f.doc.Find(selector).AppendHtml(markup)
}

// Count returns the number of elements matching selector.
func (f *Fixture) Count(selector string) int {
	return f.doc.Find(selector).Length()
}

func (f *Fixture) record(format string, args ...interface{}) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *Fixture) find(selector string) (*goquery.Selection, error) {
	sel := f.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return sel, nil
}

// URL implements Page.
func (f *Fixture) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// Snapshot implements Page. Elements without a node id are stamped.
func (f *Fixture) Snapshot(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr(AttrNode); ok {
			return
		}
		f.next++
		s.SetAttr(AttrNode, strconv.Itoa(f.next))
	})
	return f.doc, nil
}

// Click implements Page. Clicking a mounted action control runs its
// callback.
func (f *Fixture) Click(ctx context.Context, selector string) error {
	sel, err := f.find(selector)
	if err != nil {
		return err
	}
	f.record("click %s", selector)
	if id, ok := sel.Attr(AttrAction); ok {
		f.fire(id)
	}
	if f.OnClick != nil {
		f.OnClick(f, selector)
	}
	return nil
}

// ClearInput implements Page.
func (f *Fixture) ClearInput(ctx context.Context, selector string) error {
	sel, err := f.find(selector)
	if err != nil {
		return err
	}
	sel.SetAttr("value", "")
	f.record("clear %s", selector)
	return nil
}

// Bounds implements Page using the data-dl-* layout attributes.
func (f *Fixture) Bounds(ctx context.Context, selector string) (Rect, error) {
	sel, err := f.find(selector)
	if err != nil {
		return Rect{}, err
	}
	num := func(attr string) float64 {
		v, _ := strconv.ParseFloat(sel.AttrOr(attr, "0"), 64)
		return v
	}
	return Rect{
		X:      num(AttrLeft),
		Y:      num(AttrTop),
		Width:  num(AttrWidth),
		Height: num(AttrHeight),
	}, nil
}

// ScrollState implements Page. Containers without a configured state report
// a zero, non-scrollable state.
func (f *Fixture) ScrollState(ctx context.Context, selector string) (ScrollState, error) {
	if _, err := f.find(selector); err != nil {
		return ScrollState{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scroll[selector], nil
}

// ScrollTo implements Page. The offset is clamped to the content size and to
// any limit set with LimitScroll.
func (f *Fixture) ScrollTo(ctx context.Context, selector string, top float64) error {
	if _, err := f.find(selector); err != nil {
		return err
	}

	f.mu.Lock()
	s := f.scroll[selector]
	if max := s.Height - s.ClientHeight; s.Height > 0 && top > max {
		top = max
	}
	if limit, ok := f.limits[selector]; ok && top > limit {
		top = limit
	}
	if top < 0 {
		top = 0
	}
	s.Top = top
	f.scroll[selector] = s
	f.calls = append(f.calls, fmt.Sprintf("scroll %s %g", selector, top))
	f.mu.Unlock()

	if f.OnScroll != nil {
		f.OnScroll(f, selector, top)
	}
	return nil
}

// Dispatch implements Page.
func (f *Fixture) Dispatch(ctx context.Context, events []PointerEvent) error {
	if len(events) == 0 {
		return nil
	}
	f.record("drag %g", Delta(events))
	if f.OnDispatch != nil {
		f.OnDispatch(f, events)
	}
	return nil
}

// Mount implements Page.
func (f *Fixture) Mount(ctx context.Context, m Mount, onClick func()) error {
	row, err := f.find(m.Row)
	if err != nil {
		return err
	}
	if row.Find(ActionSelector).Length() > 0 {
		return nil
	}

	f.mu.Lock()
	f.next++
	id := "a" + strconv.Itoa(f.next)
	f.actions[id] = onClick
	f.calls = append(f.calls, "mount "+m.Row)
	f.mu.Unlock()

	button := actionNode(id, m)

	for _, c := range m.Containers {
		if target := row.Find(c).First(); target.Length() > 0 {
			target.AppendNodes(button)
			return nil
		}
	}
	if m.Anchor != "" {
		if anchor := row.Find(m.Anchor).First(); anchor.Length() > 0 {
			anchor.AfterNodes(button)
			return nil
		}
	}
	row.AppendNodes(button)
	return nil
}

// actionNode builds the control inserted by Mount.
func actionNode(id string, m Mount) *html.Node {
	button := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Button,
		Data:     atom.Button.String(),
		Attr: []html.Attribute{
			{Key: "type", Val: "button"},
			{Key: "class", Val: ActionClass},
			{Key: AttrAction, Val: id},
			{Key: "title", Val: m.Title},
		},
	}
	button.AppendChild(&html.Node{Type: html.TextNode, Data: m.Label})
	return button
}

// Activate clicks the action control mounted under the element matching
// rowSelector.
func (f *Fixture) Activate(rowSelector string) error {
	row, err := f.find(rowSelector)
	if err != nil {
		return err
	}
	id, ok := row.Find(ActionSelector).First().Attr(AttrAction)
	if !ok {
		return fmt.Errorf("%s action: %w", rowSelector, ErrNotFound)
	}
	f.fire(id)
	return nil
}

func (f *Fixture) fire(id string) {
	f.mu.Lock()
	cb := f.actions[id]
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}
