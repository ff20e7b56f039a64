package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/fortuna/draftlens/internal/dom"
)

// Page is a live browser tab. It implements dom.Page.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	url     string
	frame   cdp.FrameID
	actions map[string]func()
	next    atomic.Int64
}

var _ dom.Page = (*Page)(nil)

// Close closes the tab.
func (p *Page) Close() {
	p.cancel()
}

// run executes actions on the tab, bounded by ctx as well as the tab.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// eval calls a script function with JSON encoded arguments.
func (p *Page) eval(ctx context.Context, res interface{}, fn string, args ...interface{}) error {
	expr, err := call(fn, args...)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.Evaluate(expr, res))
}

// call renders an immediately invoked function expression.
func call(fn string, args ...interface{}) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encode script argument: %w", err)
		}
		encoded[i] = string(b)
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", ")), nil
}

func notFound(selector string) error {
	return fmt.Errorf("%s: %w", selector, dom.ErrNotFound)
}

// URL implements dom.Page.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Snapshot implements dom.Page.
func (p *Page) Snapshot(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := p.eval(ctx, &html, snapshotJS, dom.AttrNode, dom.AttrTop); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	p.prune(doc)
	return doc, nil
}

// prune drops the callbacks of action controls that are no longer in the
// document, such as controls of rows a virtualized list unmounted. Like the
// fixture, the page is driven from one goroutine at a time, so no Mount is
// in flight while a snapshot is pruned.
func (p *Page) prune(doc *goquery.Document) {
	live := make(map[string]bool)
	doc.Find(dom.ActionSelector).Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr(dom.AttrAction); ok {
			live[id] = true
		}
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.actions {
		if !live[id] {
			delete(p.actions, id)
		}
	}
}

// Click implements dom.Page.
func (p *Page) Click(ctx context.Context, selector string) error {
	var found bool
	if err := p.eval(ctx, &found, clickJS, selector); err != nil {
		return err
	}
	if !found {
		return notFound(selector)
	}
	return nil
}

// ClearInput implements dom.Page.
func (p *Page) ClearInput(ctx context.Context, selector string) error {
	var found bool
	if err := p.eval(ctx, &found, clearJS, selector); err != nil {
		return err
	}
	if !found {
		return notFound(selector)
	}
	return nil
}

// Bounds implements dom.Page.
func (p *Page) Bounds(ctx context.Context, selector string) (dom.Rect, error) {
	var res struct {
		Found  bool    `json:"found"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := p.eval(ctx, &res, boundsJS, selector); err != nil {
		return dom.Rect{}, err
	}
	if !res.Found {
		return dom.Rect{}, notFound(selector)
	}
	return dom.Rect{X: res.X, Y: res.Y, Width: res.Width, Height: res.Height}, nil
}

// ScrollState implements dom.Page.
func (p *Page) ScrollState(ctx context.Context, selector string) (dom.ScrollState, error) {
	var res struct {
		Found        bool    `json:"found"`
		Top          float64 `json:"top"`
		Height       float64 `json:"height"`
		ClientHeight float64 `json:"clientHeight"`
	}
	if err := p.eval(ctx, &res, scrollStateJS, selector); err != nil {
		return dom.ScrollState{}, err
	}
	if !res.Found {
		return dom.ScrollState{}, notFound(selector)
	}
	return dom.ScrollState{Top: res.Top, Height: res.Height, ClientHeight: res.ClientHeight}, nil
}

// ScrollTo implements dom.Page. The scroll is smooth; callers settle
// before reading the new offset.
func (p *Page) ScrollTo(ctx context.Context, selector string, top float64) error {
	var found bool
	if err := p.eval(ctx, &found, scrollToJS, selector, top); err != nil {
		return err
	}
	if !found {
		return notFound(selector)
	}
	return nil
}

// Dispatch implements dom.Page. Events are sent as left button mouse events
// at their time offsets.
func (p *Page) Dispatch(ctx context.Context, events []dom.PointerEvent) error {
	if len(events) == 0 {
		return nil
	}
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		for _, ev := range events {
			if wait := ev.At - time.Since(start); wait > 0 {
				if err := dom.Settle(ctx, wait); err != nil {
					return err
				}
			}
			if err := mouseEvent(ev).Do(ctx); err != nil {
				return fmt.Errorf("dispatch %s: %w", ev.Type, err)
			}
		}
		return nil
	}))
}

func mouseEvent(ev dom.PointerEvent) *input.DispatchMouseEventParams {
	var typ input.MouseType
	buttons := int64(1)
	switch ev.Type {
	case dom.PointerDown:
		typ = input.MousePressed
	case dom.PointerUp:
		typ = input.MouseReleased
		buttons = 0
	default:
		typ = input.MouseMoved
	}
	params := input.DispatchMouseEvent(typ, ev.X, ev.Y).
		WithButton(input.Left).
		WithButtons(buttons)
	if typ != input.MouseMoved {
		params = params.WithClickCount(1)
	}
	return params
}

// Mount implements dom.Page. The control reports clicks through the page
// binding; onClick runs on its own goroutine.
func (p *Page) Mount(ctx context.Context, m dom.Mount, onClick func()) error {
	id := fmt.Sprintf("a%d", p.next.Add(1))
	target := struct {
		Row        string   `json:"row"`
		Containers []string `json:"containers"`
		Anchor     string   `json:"anchor"`
		Label      string   `json:"label"`
		Title      string   `json:"title"`
		ClassName  string   `json:"className"`
		Attr       string   `json:"attr"`
	}{m.Row, m.Containers, m.Anchor, m.Label, m.Title, dom.ActionClass, dom.AttrAction}

	// register first so a click racing the mount is not lost
	p.mu.Lock()
	p.actions[id] = onClick
	p.mu.Unlock()

	var status string
	err := p.eval(ctx, &status, mountJS, target, id, bindingName)
	if err != nil || status != "mounted" {
		p.mu.Lock()
		delete(p.actions, id)
		p.mu.Unlock()
	}
	if err != nil {
		return err
	}
	if status == "missing" {
		return notFound(m.Row)
	}
	return nil
}
