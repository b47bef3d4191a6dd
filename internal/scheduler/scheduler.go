package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"photowall/internal/animation"
	"photowall/internal/layout"
	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/policy"
	"photowall/internal/wall"
)

// Options tune swap pacing and selection.
type Options struct {
	// Interval is the fixed tick between swaps.
	Interval time.Duration
	// MinWeightFloor keeps freshly placed photos selectable at a reduced
	// weight rather than excluding them outright.
	MinWeightFloor time.Duration
	// RecoveryDefer delays a watchdog-requested swap so an in-flight
	// choreography can settle first.
	RecoveryDefer time.Duration

	PanoramaProbability     float64
	PanoramaReferenceAspect float64
	PanSpeed                float64
}

// Scheduler drives the periodic photo swaps. Each tick targets the opposite
// row from the previous one, picks a displayed photo by dwell-weighted
// selection, draws a replacement shaped for the vacated slot, expands into
// adjacent slots when the replacement needs more room, and hands the
// assembled plan to that row's choreographer. A tick with nothing eligible
// or no room is a silent no-op.
type Scheduler struct {
	wall   *wall.Wall
	store  *photo.Store
	chors  map[wall.RowID]*animation.Choreographer
	rng    *rand.Rand
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	next    wall.RowID
}

// New constructs a scheduler over the wall and its per-row choreographers.
func New(w *wall.Wall, store *photo.Store, chors map[wall.RowID]*animation.Choreographer, rng *rand.Rand, opts Options, logger *slog.Logger) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xa076_1d64_78bd_642f))
	}
	return &Scheduler{
		wall:   w,
		store:  store,
		chors:  chors,
		rng:    rng,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "scheduler"),
		next:   wall.Top,
	}
}

// Start begins the swap loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop terminates the swap loop and waits for completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one swap against the next row in the alternation.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	row := s.next
	s.next = row.Other()
	s.mu.Unlock()
	s.swap(ctx, row)
}

// RequestRecovery queues an out-of-band swap against the row after the
// configured defer. The watchdog calls it for cells that failed to load; the
// defer gives any in-flight choreography room to settle.
func (s *Scheduler) RequestRecovery(ctx context.Context, row wall.RowID) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.opts.RecoveryDefer)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.swap(ctx, row)
	}()
}

func (s *Scheduler) swap(ctx context.Context, row wall.RowID) {
	plan, ok := s.planSwap(row, time.Now())
	if !ok {
		return
	}
	chor := s.chors[row]
	if chor == nil {
		return
	}
	committed, err := chor.Run(ctx, *plan)
	if !committed && plan.Replacement != nil {
		// The drawn replacement never reached the row; put it back so it is
		// pooled rather than lost.
		s.logger.Debug("choreography superseded before commit, returning photo",
			logging.String(logging.FieldRow, string(row)),
			logging.String(logging.FieldPhoto, plan.Replacement.Photo.FilePath),
		)
		s.returnToStore(plan.Replacement)
	}
	if err != nil {
		if policy.IsAbortError(err) {
			return
		}
		s.logger.Warn("swap choreography failed",
			logging.String(logging.FieldRow, string(row)),
			logging.Error(err),
		)
	}
}

// planSwap assembles the removal set, replacement cell, insertion index, and
// leftover fill columns for one swap. Returns false when the tick should be
// a no-op: nothing eligible, an empty store, or no room for the replacement.
func (s *Scheduler) planSwap(row wall.RowID, now time.Time) (*animation.Plan, bool) {
	cells := s.wall.CellsOf(row)
	if len(cells) == 0 {
		return nil, false
	}

	displayed := make([]*photo.Photo, len(cells))
	byPhoto := make(map[*photo.Photo]int, len(cells))
	for i, c := range cells {
		displayed[i] = c.Photo
		// Clone cells share their photo; keep the original occurrence.
		if _, seen := byPhoto[c.Photo]; !seen {
			byPhoto[c.Photo] = i
		}
	}
	victim := photo.SelectReplacement(displayed, now, s.opts.MinWeightFloor, s.rng.Float64())
	if victim == nil {
		return nil, false
	}
	targetIdx := byPhoto[victim]
	target := cells[targetIdx]
	edge := targetIdx == 0 || targetIdx == len(cells)-1

	sel := s.store.Select(photo.SelectRequest{
		DesiredAspect:       s.wall.SlotAspect(target.Columns),
		Edge:                edge,
		PanoramaProbability: s.opts.PanoramaProbability,
		PanoramaColumns:     2,
	})
	if sel == nil {
		return nil, false
	}
	replacement := wall.NewReplacementCell(sel)
	if sel.IsPanorama {
		s.sizePanorama(replacement)
	}

	remove := []*wall.Cell{target}
	insertIdx := targetIdx
	extra := target.Columns - replacement.Columns
	if extra < 0 {
		exp := layout.ExpandSpace(s.wall.Widths(row), targetIdx, replacement.Columns, s.rng.IntN(2) == 0)
		if exp == nil {
			s.abandonSelection(row, replacement)
			return nil, false
		}
		remove = remove[:0]
		for _, idx := range exp.Indices {
			remove = append(remove, cells[idx])
		}
		insertIdx = exp.Indices[0]
		extra = exp.Extra
	}

	gravity := animation.GravityLeft
	if s.rng.IntN(2) == 0 {
		gravity = animation.GravityRight
	}
	return &animation.Plan{
		Row:         row,
		Remove:      remove,
		Replacement: replacement,
		InsertIndex: insertIdx,
		FillColumns: extra,
		Gravity:     gravity,
	}, true
}

// sizePanorama recomputes the drawn panorama's slot width from its actual
// aspect ratio and derives the pan needed to cover any overflow.
func (s *Scheduler) sizePanorama(cell *wall.Cell) {
	p := cell.Photo
	columns := layout.PanoramaColumns(p.AspectRatio, s.wall.TotalColumns(), s.opts.PanoramaReferenceAspect)
	p.Columns = columns
	cell.Columns = columns
	cell.PanDuration = layout.PanDuration(
		p.AspectRatio*s.wall.RowHeight(),
		float64(columns)*s.wall.ColumnWidth(),
		s.opts.PanSpeed,
	)
}

// abandonSelection returns an undisplayed draw to the store when no room can
// be made for it. A drawn photo always lands back in exactly one place.
func (s *Scheduler) abandonSelection(row wall.RowID, cell *wall.Cell) {
	s.logger.Debug("no room for replacement, returning photo",
		logging.String(logging.FieldRow, string(row)),
		logging.String(logging.FieldPhoto, cell.Photo.FilePath),
	)
	s.returnToStore(cell)
}

func (s *Scheduler) returnToStore(cell *wall.Cell) {
	for _, p := range []*photo.Photo{cell.Photo, cell.Stacked} {
		if p == nil {
			continue
		}
		p.MarkStored()
		s.store.Add(p)
	}
}
