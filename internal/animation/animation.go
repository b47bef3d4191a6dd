package animation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"photowall/internal/logging"
	"photowall/internal/wall"
)

// Gravity is the side removed photos shrink toward and survivors slide
// toward; replacements enter from the opposite side.
type Gravity string

const (
	GravityLeft  Gravity = "left"
	GravityRight Gravity = "right"
)

// Timings bundles the choreography durations and curve parameters.
type Timings struct {
	Shrink          time.Duration
	Reflow          time.Duration
	Slide           time.Duration
	SlideDelay      time.Duration
	FillStagger     time.Duration
	BounceOvershoot float64
	ReducedMotion   bool
}

// MaxDuration returns the longest interval one choreography can occupy. The
// watchdog uses it to tell a slow animation from a stuck cell.
func (t Timings) MaxDuration() time.Duration {
	settle := t.Reflow
	if slide := t.SlideDelay + t.Slide; slide > settle {
		settle = slide
	}
	return t.Shrink + settle + 8*t.FillStagger
}

// Plan describes one swap choreography: the cells leaving the row, the
// replacement entering, and how much leftover space fill photos consume.
// InsertIndex is the replacement's position in the row after the removals.
type Plan struct {
	Row         wall.RowID
	Remove      []*wall.Cell
	Replacement *wall.Cell
	InsertIndex int
	FillColumns int
	Gravity     Gravity
}

// UpgradeGate pauses background quality upgrades while a choreography is in
// flight so image sources never swap mid-animation.
type UpgradeGate interface {
	Pause()
	Resume()
}

// Choreographer runs swap choreographies for a single row. Each row owns its
// own choreographer and cancellation scope; starting a new run cancels the
// previous run's pending timers before the new Phase A begins, and runs on
// different rows never interfere.
type Choreographer struct {
	row     wall.RowID
	wall    *wall.Wall
	timings Timings
	gate    UpgradeGate
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChoreographer builds the choreographer for one row.
func NewChoreographer(row wall.RowID, w *wall.Wall, timings Timings, gate UpgradeGate, logger *slog.Logger) *Choreographer {
	return &Choreographer{
		row:     row,
		wall:    w,
		timings: timings,
		gate:    gate,
		logger:  logging.NewComponentLogger(logger, "choreographer").With(logging.String(logging.FieldRow, string(row))),
	}
}

// Run executes one swap choreography to completion: shrink, mutation, gravity
// reflow concurrent with slide-in, staggered fills. Quality upgrades stay
// paused for the whole sequence. A run superseded by a newer one returns
// context.Canceled. The committed flag reports whether the row mutation ran;
// when false the plan's replacement was never inserted and the caller still
// owns its photos.
func (c *Choreographer) Run(ctx context.Context, plan Plan) (committed bool, err error) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	if prev := c.done; prev != nil {
		c.mu.Unlock()
		<-prev
		c.mu.Lock()
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	defer close(done)
	defer cancel()

	if c.gate != nil {
		c.gate.Pause()
		defer c.gate.Resume()
	}
	c.wall.MarkBusy(plan.Row, true)
	defer c.wall.MarkBusy(plan.Row, false)

	if err := c.phaseShrink(runCtx, plan); err != nil {
		return false, err
	}

	// The DOM-equivalent mutation happens strictly after Phase A. Fill cells
	// insert hidden before positions are recaptured so survivors measure
	// against the final layout. The replacement enters from the side opposite
	// gravity, so it occupies the entry edge of the vacated span: under left
	// gravity the fills pack left and the replacement lands last.
	before := c.wall.MeasurePositions(plan.Row)
	c.wall.RemoveCells(plan.Row, plan.Remove)
	now := time.Now()
	fills := c.wall.FillCells(plan.FillColumns)
	if plan.Gravity == GravityLeft {
		for i, f := range fills {
			c.wall.InsertCell(plan.Row, plan.InsertIndex+i, f, now)
		}
		if plan.Replacement != nil {
			c.wall.InsertCell(plan.Row, plan.InsertIndex+len(fills), plan.Replacement, now)
		}
	} else {
		if plan.Replacement != nil {
			c.wall.InsertCell(plan.Row, plan.InsertIndex, plan.Replacement, now)
		}
		for i, f := range fills {
			c.wall.InsertCell(plan.Row, plan.InsertIndex+1+i, f, now)
		}
	}
	after := c.wall.MeasurePositions(plan.Row)

	deltas := make(map[*wall.Cell]float64)
	for cell, newLeft := range after {
		oldLeft, survived := before[cell]
		if !survived {
			continue
		}
		if delta := oldLeft - newLeft; delta != 0 {
			deltas[cell] = delta
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.phaseReflow(runCtx, deltas)
	}()
	go func() {
		defer wg.Done()
		c.phaseSlideIn(runCtx, plan, fills)
	}()
	wg.Wait()

	return true, runCtx.Err()
}

// phaseShrink animates removed cells toward the gravity corner, or hides
// them instantly under reduced motion. Resolves once the duration elapses,
// immediately when nothing is removed.
func (c *Choreographer) phaseShrink(ctx context.Context, plan Plan) error {
	if len(plan.Remove) == 0 {
		return nil
	}
	if c.timings.ReducedMotion {
		for _, cell := range plan.Remove {
			c.wall.UpdateCell(cell, func(cc *wall.Cell) {
				cc.Visible = false
				cc.Opacity = 0
			})
		}
		return nil
	}

	dx := -1.0
	if plan.Gravity == GravityRight {
		dx = 1
	}
	// Top-shelf removals sink toward the bottom corner; bottom-shelf
	// removals rise toward the top corner.
	dy := 1.0
	if plan.Row == wall.Bottom {
		dy = -1
	}
	travel := c.wall.ColumnWidth()

	err := c.animate(ctx, c.timings.Shrink, func(p float64) {
		eased := easeOutCubic(p)
		for _, cell := range plan.Remove {
			c.wall.UpdateCell(cell, func(cc *wall.Cell) {
				cc.Scale = 1 - eased
				cc.Opacity = 1 - eased
				cc.OffsetX = dx * travel * eased
				cc.OffsetY = dy * travel * eased
			})
		}
	})
	if err != nil {
		return err
	}
	for _, cell := range plan.Remove {
		c.wall.UpdateCell(cell, func(cc *wall.Cell) { cc.Visible = false })
	}
	return nil
}

// phaseReflow plays the FLIP offsets back to zero with a directional bounce.
func (c *Choreographer) phaseReflow(ctx context.Context, deltas map[*wall.Cell]float64) {
	if len(deltas) == 0 {
		return
	}
	for cell, delta := range deltas {
		d := delta
		c.wall.UpdateCell(cell, func(cc *wall.Cell) { cc.OffsetX = d })
	}
	_ = c.animate(ctx, c.timings.Reflow, func(p float64) {
		eased := easeOutBack(p, c.timings.BounceOvershoot)
		for cell, delta := range deltas {
			remaining := delta * (1 - eased)
			c.wall.UpdateCell(cell, func(cc *wall.Cell) { cc.OffsetX = remaining })
		}
	})
	for cell := range deltas {
		c.wall.UpdateCell(cell, func(cc *wall.Cell) { cc.OffsetX = 0 })
	}
}

// phaseSlideIn reveals the replacement from the entry edge after the overlap
// delay, then the fill cells with a per-item stagger.
func (c *Choreographer) phaseSlideIn(ctx context.Context, plan Plan, fills []*wall.Cell) {
	if plan.Replacement == nil && len(fills) == 0 {
		return
	}
	if err := sleepCtx(ctx, c.timings.SlideDelay); err != nil {
		return
	}

	entry := c.entryOffset(plan)

	var wg sync.WaitGroup
	if plan.Replacement != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.slideCell(ctx, plan.Replacement, entry)
		}()
	}
	for i, f := range fills {
		wg.Add(1)
		go func(i int, cell *wall.Cell) {
			defer wg.Done()
			if err := sleepCtx(ctx, time.Duration(i+1)*c.timings.FillStagger); err != nil {
				return
			}
			c.slideCell(ctx, cell, entry)
		}(i, f)
	}
	wg.Wait()
}

func (c *Choreographer) entryOffset(plan Plan) float64 {
	distance := c.wall.ColumnWidth()
	if plan.Replacement != nil {
		distance *= float64(plan.Replacement.Columns)
	}
	// Entry direction is opposite the gravity side.
	if plan.Gravity == GravityLeft {
		return distance
	}
	return -distance
}

func (c *Choreographer) slideCell(ctx context.Context, cell *wall.Cell, entry float64) {
	c.wall.UpdateCell(cell, func(cc *wall.Cell) {
		cc.Visible = true
		cc.OffsetX = entry
		cc.Opacity = 0
		cc.Scale = 1
	})
	_ = c.animate(ctx, c.timings.Slide, func(p float64) {
		eased := easeOutBack(p, c.timings.BounceOvershoot)
		c.wall.UpdateCell(cell, func(cc *wall.Cell) {
			cc.OffsetX = entry * (1 - eased)
			cc.Opacity = easeOutCubic(p)
		})
	})
	c.wall.UpdateCell(cell, func(cc *wall.Cell) { cc.ResetVisual() })
}

const frameInterval = 16 * time.Millisecond

func (c *Choreographer) animate(ctx context.Context, duration time.Duration, apply func(progress float64)) error {
	return animateFrames(ctx, duration, apply)
}

// animateFrames invokes apply with progress climbing monotonically to exactly
// 1. Cancellation stops mid-flight without applying the final frame.
func animateFrames(ctx context.Context, duration time.Duration, apply func(progress float64)) error {
	if duration <= 0 {
		apply(1)
		return nil
	}
	steps := int(duration / frameInterval)
	if steps < 1 {
		steps = 1
	}
	interval := duration / time.Duration(steps)
	for i := 1; i <= steps; i++ {
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
		apply(float64(i) / float64(steps))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
