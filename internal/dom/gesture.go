package dom

import "time"

// PointerType is the phase of a synthetic pointer event.
type PointerType string

const (
	PointerDown PointerType = "down"
	PointerMove PointerType = "move"
	PointerUp   PointerType = "up"
)

// PointerEvent is one low-level event of a gesture. At is the offset from
// the start of the gesture at which the event is dispatched.
type PointerEvent struct {
	Type PointerType
	X    float64
	Y    float64
	At   time.Duration
}

// Drag returns the events of a left-button drag from one point to another:
// a press at from, steps evenly spaced moves ending at to, and a release at
// to. Consecutive events are interval apart.
func Drag(from, to Point, steps int, interval time.Duration) []PointerEvent {
	if steps < 1 {
		steps = 1
	}

	events := make([]PointerEvent, 0, steps+2)
	events = append(events, PointerEvent{Type: PointerDown, X: from.X, Y: from.Y})

	dx := (to.X - from.X) / float64(steps)
	dy := (to.Y - from.Y) / float64(steps)
	for i := 1; i <= steps; i++ {
		p := Point{X: from.X + dx*float64(i), Y: from.Y + dy*float64(i)}
		if i == steps {
			p = to
		}
		events = append(events, PointerEvent{
			Type: PointerMove,
			X:    p.X,
			Y:    p.Y,
			At:   time.Duration(i) * interval,
		})
	}

	events = append(events, PointerEvent{
		Type: PointerUp,
		X:    to.X,
		Y:    to.Y,
		At:   time.Duration(steps+1) * interval,
	})
	return events
}

// Delta returns the vertical distance covered by a gesture.
func Delta(events []PointerEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Y - events[0].Y
}
