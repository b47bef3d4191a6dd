package animation

import (
	"context"
	"time"

	"photowall/internal/wall"
)

// FadeOut dims every displayed cell to transparent over d and leaves them
// hidden. A zero duration hides the wall instantly; callers pass zero under
// reduced motion.
func FadeOut(ctx context.Context, w *wall.Wall, d time.Duration) {
	cells := allCells(w)
	if len(cells) == 0 {
		return
	}
	_ = animateFrames(ctx, d, func(p float64) {
		o := 1 - easeOutCubic(p)
		for _, c := range cells {
			w.UpdateCell(c, func(cc *wall.Cell) { cc.Opacity = o })
		}
	})
	for _, c := range cells {
		w.UpdateCell(c, func(cc *wall.Cell) {
			cc.Opacity = 0
			cc.Visible = false
		})
	}
}

// FadeIn reveals every displayed cell from transparent to fully opaque over
// d. Cells always settle at the neutral visual state, cancelled or not.
func FadeIn(ctx context.Context, w *wall.Wall, d time.Duration) {
	cells := allCells(w)
	if len(cells) == 0 {
		return
	}
	for _, c := range cells {
		w.UpdateCell(c, func(cc *wall.Cell) {
			cc.Opacity = 0
			cc.Visible = true
		})
	}
	_ = animateFrames(ctx, d, func(p float64) {
		o := easeOutCubic(p)
		for _, c := range cells {
			w.UpdateCell(c, func(cc *wall.Cell) { cc.Opacity = o })
		}
	})
	for _, c := range cells {
		w.UpdateCell(c, func(cc *wall.Cell) { cc.ResetVisual() })
	}
}

func allCells(w *wall.Wall) []*wall.Cell {
	cells := w.CellsOf(wall.Top)
	return append(cells, w.CellsOf(wall.Bottom)...)
}
