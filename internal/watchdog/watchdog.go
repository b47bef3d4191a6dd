package watchdog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"photowall/internal/logging"
	"photowall/internal/wall"
)

// Recoverer accepts out-of-band swap requests for a row.
type Recoverer interface {
	RequestRecovery(ctx context.Context, row wall.RowID)
}

// Options tune the scan cadence.
type Options struct {
	// Interval is the time between scans.
	Interval time.Duration
	// StuckGrace pads the maximum plausible choreography duration before a
	// hidden cell counts as stuck.
	StuckGrace time.Duration
	// MaxAnimation is the longest a healthy choreography can keep a cell
	// hidden.
	MaxAnimation time.Duration
}

// Watchdog periodically audits displayed cells for two independent faults:
// photos that failed to load, recovered by forcing their swap eligibility
// and queuing an out-of-band swap, and cells stuck invisible past any
// plausible animation window, recovered by resetting their visual state
// inline. Both recoveries are best-effort and idempotent.
type Watchdog struct {
	wall      *wall.Wall
	recoverer Recoverer
	opts      Options
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a watchdog over the wall.
func New(w *wall.Wall, recoverer Recoverer, opts Options, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		wall:      w,
		recoverer: recoverer,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "watchdog"),
	}
}

// Start begins the scan loop.
func (d *Watchdog) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("watchdog already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(runCtx)
	return nil
}

// Stop terminates the scan loop and waits for completion.
func (d *Watchdog) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
}

func (d *Watchdog) run(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Scan(ctx, time.Now())
		}
	}
}

// Scan audits every displayed cell once.
func (d *Watchdog) Scan(ctx context.Context, now time.Time) {
	for _, row := range []wall.RowID{wall.Top, wall.Bottom} {
		for _, cell := range d.wall.CellsOf(row) {
			d.auditCell(ctx, row, cell, now)
		}
	}
}

func (d *Watchdog) auditCell(ctx context.Context, row wall.RowID, cell *wall.Cell, now time.Time) {
	if cell.LoadFailed {
		d.recoverLoadFailure(ctx, row, cell, now)
	}

	if !cell.Hidden() {
		if !cell.StuckSince.IsZero() {
			d.wall.UpdateCell(cell, func(c *wall.Cell) { c.StuckSince = time.Time{} })
		}
		return
	}
	d.recoverStuckCell(row, cell, now)
}

// recoverLoadFailure makes the broken cell effectively certain to be picked
// by the next weighted selection, then queues a deferred out-of-band swap.
func (d *Watchdog) recoverLoadFailure(ctx context.Context, row wall.RowID, cell *wall.Cell, now time.Time) {
	d.logger.Warn("recovering load-failed cell",
		logging.String(logging.FieldRow, string(row)),
		logging.String(logging.FieldPhoto, cell.Photo.FilePath),
	)
	d.wall.UpdateCell(cell, func(c *wall.Cell) {
		c.Photo.MarkDisplayed(now.Add(-24 * time.Hour))
		c.LoadFailed = false
	})
	if d.recoverer != nil {
		d.recoverer.RequestRecovery(ctx, row)
	}
}

// recoverStuckCell resets a cell left invisible past the longest plausible
// animation window. The first hidden sighting only starts the timer.
func (d *Watchdog) recoverStuckCell(row wall.RowID, cell *wall.Cell, now time.Time) {
	if cell.StuckSince.IsZero() {
		d.wall.UpdateCell(cell, func(c *wall.Cell) { c.StuckSince = now })
		return
	}
	if now.Sub(cell.StuckSince) <= d.opts.MaxAnimation+d.opts.StuckGrace {
		return
	}
	d.logger.Warn("resetting cell stuck invisible",
		logging.String(logging.FieldRow, string(row)),
		logging.String(logging.FieldPhoto, cell.Photo.FilePath),
		logging.Duration("stuck_for", now.Sub(cell.StuckSince)),
	)
	d.wall.UpdateCell(cell, func(c *wall.Cell) {
		c.ResetVisual()
		c.StuckSince = time.Time{}
	})
}
