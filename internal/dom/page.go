// Package dom models the host page as an injected dependency. Parsers read a
// goquery snapshot of the page and address live elements through CSS
// selectors; a Page implementation carries the reads and writes to either an
// in-memory fixture or a live browser tab.
package dom

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Attributes stamped on every element of a snapshot.
const (
	AttrNode = "data-dl-node"
	AttrTop  = "data-dl-top"
)

// Injected action control markers.
const (
	ActionClass    = "dl-action"
	ActionSelector = "." + ActionClass
	AttrAction     = "data-dl-action"
)

// ErrNotFound is returned when a selector matches no element.
var ErrNotFound = errors.New("element not found")

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is an element bounding box in viewport coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// ScrollState describes the vertical scroll of a container.
type ScrollState struct {
	Top          float64
	Height       float64
	ClientHeight float64
}

// Scrollable reports whether the content overflows the container.
func (s ScrollState) Scrollable() bool {
	return s.Height > s.ClientHeight+1
}

// AtBottom reports whether the viewport has reached the end of the content.
func (s ScrollState) AtBottom() bool {
	return s.Top+s.ClientHeight >= s.Height-1
}

// Mount describes where an action control goes inside a row.
type Mount struct {
	// Row addresses the row root.
	Row string
	// Containers are layout containers inside the row, preferred in order.
	Containers []string
	// Anchor is the name element inside the row used for a sibling insert.
	Anchor string
	Label  string
	Title  string
}

// Page is the queryable, mutable host document.
type Page interface {
	URL() string
	Snapshot(ctx context.Context) (*goquery.Document, error)
	Click(ctx context.Context, selector string) error
	ClearInput(ctx context.Context, selector string) error
	Bounds(ctx context.Context, selector string) (Rect, error)
	ScrollState(ctx context.Context, selector string) (ScrollState, error)
	ScrollTo(ctx context.Context, selector string, top float64) error
	Dispatch(ctx context.Context, events []PointerEvent) error
	Mount(ctx context.Context, m Mount, onClick func()) error
}

// NodeSelector returns a selector addressing the element stamped with id.
func NodeSelector(id string) string {
	return fmt.Sprintf(`[%s="%s"]`, AttrNode, id)
}

// NodeID returns the stamped id of the first element in s.
func NodeID(s *goquery.Selection) (string, bool) {
	id, ok := s.Attr(AttrNode)
	return id, ok && id != ""
}

// Top returns the stamped vertical position of the first element in s.
func Top(s *goquery.Selection) (float64, bool) {
	raw, ok := s.Attr(AttrTop)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Settle waits d, returning early with the context error on cancellation.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
