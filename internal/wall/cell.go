package wall

import (
	"time"

	"photowall/internal/photo"
)

// Cell is one occupied slot of a row: a photo (or two stacked landscapes)
// plus the visual state a rendering surface would project. Opacity, offset,
// and scale are the animation-facing fields; the choreographer drives them
// and the watchdog audits them.
type Cell struct {
	Photo *photo.Photo
	// Stacked is the second landscape sharing a width-1 slot, nil otherwise.
	Stacked *photo.Photo
	Columns int
	// Clone marks a duplicated display of an already-shown photo, used as the
	// terminal slot-fill fallback. Clones are discarded on detach instead of
	// returning to the store.
	Clone bool
	// IsPanorama marks a full-bleed extreme-wide cell.
	IsPanorama bool
	// PanDuration is the horizontal pan length for overflowing panoramas.
	PanDuration time.Duration

	Opacity float64
	OffsetX float64
	OffsetY float64
	Scale   float64
	Visible bool

	// LoadFailed is set by the load error path and consumed by the watchdog.
	LoadFailed bool
	// StuckSince tracks how long the watchdog has observed the cell
	// invisible; zero while healthy.
	StuckSince time.Time
}

func newCell(p *photo.Photo, columns int) *Cell {
	return &Cell{
		Photo:   p,
		Columns: columns,
		Opacity: 1,
		Scale:   1,
		Visible: true,
	}
}

// ResetVisual restores the neutral displayed state.
func (c *Cell) ResetVisual() {
	c.Opacity = 1
	c.OffsetX = 0
	c.OffsetY = 0
	c.Scale = 1
	c.Visible = true
}

// Hidden reports whether the cell currently renders as effectively invisible.
func (c *Cell) Hidden() bool {
	return !c.Visible || c.Opacity < 0.05
}

func (c *Cell) photos() []*photo.Photo {
	if c == nil || c.Photo == nil {
		return nil
	}
	out := []*photo.Photo{c.Photo}
	if c.Stacked != nil {
		out = append(out, c.Stacked)
	}
	return out
}
