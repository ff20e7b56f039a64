package parser

import (
	"context"
	"errors"
	"time"

	"github.com/fortuna/draftlens/internal/dom"
)

// accumulator keeps unique items in first-seen order.
type accumulator[T any] struct {
	key   func(T) string
	seen  map[string]bool
	items []T
}

func newAccumulator[T any](key func(T) string) *accumulator[T] {
	return &accumulator[T]{key: key, seen: make(map[string]bool)}
}

func (a *accumulator[T]) add(items ...T) {
	for _, it := range items {
		k := a.key(it)
		if k == "" || a.seen[k] {
			continue
		}
		a.seen[k] = true
		a.items = append(a.items, it)
	}
}

func (a *accumulator[T]) take(limit int) []T {
	out := a.items
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		return []T{}
	}
	return out
}

// List drives one scrollable list during a collection.
type List struct {
	// Read returns the names currently rendered.
	Read func(ctx context.Context) ([]string, error)
	// Advance performs one scroll step. ErrNoScroll ends the loop early.
	Advance func(ctx context.Context) error
	// Reset returns the list to its top.
	Reset func(ctx context.Context) error
}

// CollectNames runs the bounded read-scroll loop: read, merge new names,
// stop at required, otherwise scroll one step and settle. The list is reset
// to the top before returning at most required names. On cancellation the
// partial result is returned with the context error.
func CollectNames(ctx context.Context, site string, t Timing, required int, list List) ([]string, error) {
	if required <= 0 {
		return []string{}, nil
	}

	acc := newAccumulator(func(s string) string { return s })
	var loopErr error

	for attempt := 0; attempt < t.attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		names, err := list.Read(ctx)
		if err != nil {
			loopErr = err
			break
		}
		acc.add(names...)
		if len(acc.items) >= required {
			break
		}

		if list.Advance == nil {
			break
		}
		if err := list.Advance(ctx); err != nil {
			Skipped(site, "scroll", err)
			break
		}
		if err := dom.Settle(ctx, t.Settle); err != nil {
			loopErr = err
			break
		}
	}

	if list.Reset != nil && ctx.Err() == nil {
		Skipped(site, "reset scroll", list.Reset(ctx))
	}

	return acc.take(required), loopErr
}

// Panel describes a roster panel read by CollectPanel.
type Panel struct {
	// Selector addresses the scrollable list of the panel.
	Selector string
	// Read returns the entries currently rendered.
	Read func(ctx context.Context) ([]DraftedPlayer, error)
}

// CollectPanel gathers every entry of a roster panel. A panel that does not
// scroll is read once. Otherwise the panel is scrolled by ScrollStep until
// the offset stops advancing or the bottom is reached, bounded by
// MaxAttempts, and then reset to the top.
func CollectPanel(ctx context.Context, page dom.Page, site string, t Timing, panel Panel) ([]DraftedPlayer, error) {
	acc := newAccumulator(DraftedPlayer.key)

	state, err := page.ScrollState(ctx, panel.Selector)
	if err != nil || !state.Scrollable() {
		if err != nil {
			Skipped(site, "roster scroll state", err)
		}
		items, rerr := panel.Read(ctx)
		acc.add(items...)
		return acc.take(-1), rerr
	}

	var loopErr error
	for attempt := 0; attempt < t.attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		items, err := panel.Read(ctx)
		if err != nil {
			loopErr = err
			break
		}
		acc.add(items...)

		if state.AtBottom() {
			break
		}

		prev := state.Top
		if err := page.ScrollTo(ctx, panel.Selector, prev+t.ScrollStep); err != nil {
			Skipped(site, "roster scroll", err)
			break
		}
		if err := dom.Settle(ctx, t.Settle); err != nil {
			loopErr = err
			break
		}

		next, err := page.ScrollState(ctx, panel.Selector)
		if err != nil {
			Skipped(site, "roster scroll state", err)
			break
		}
		if next.Top <= prev {
			break
		}
		state = next
	}

	if ctx.Err() == nil {
		Skipped(site, "reset roster scroll", page.ScrollTo(ctx, panel.Selector, 0))
	}

	return acc.take(-1), loopErr
}

// NativeScroll returns List.Advance and List.Reset for a container that
// scrolls natively.
func NativeScroll(page dom.Page, selector string, step float64) (advance, reset func(ctx context.Context) error) {
	advance = func(ctx context.Context) error {
		state, err := page.ScrollState(ctx, selector)
		if err != nil {
			return err
		}
		if !state.Scrollable() || state.AtBottom() {
			return ErrNoScroll
		}
		return page.ScrollTo(ctx, selector, state.Top+step)
	}
	reset = func(ctx context.Context) error {
		err := page.ScrollTo(ctx, selector, 0)
		if errors.Is(err, dom.ErrNotFound) {
			return nil
		}
		return err
	}
	return advance, reset
}

// EnsureVisible clicks tab when panel is not in the page, then waits delay
// for the panel to render. A missing tab is skipped.
func EnsureVisible(ctx context.Context, page dom.Page, site, panel, tab string, delay time.Duration) error {
	doc, err := page.Snapshot(ctx)
	if err != nil {
		return err
	}
	if doc.Find(panel).Length() > 0 {
		return nil
	}
	if err := page.Click(ctx, tab); err != nil {
		Skipped(site, "reveal roster tab", err)
		return nil
	}
	return dom.Settle(ctx, delay)
}
