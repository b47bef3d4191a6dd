package wall

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"photowall/internal/logging"
	"photowall/internal/photo"
)

// Options carries the geometry and probability tunables the wall lays rows
// out with.
type Options struct {
	TotalColumns   int
	ViewportWidth  float64
	ViewportHeight float64

	WideSlotProbability         float64
	StackedLandscapeProbability float64
	PanoramaProbability         float64
	PanoramaReferenceAspect     float64
	PanSpeed                    float64
	StealProbability            float64
	PatternAvoidRetries         int
}

// Wall is the two-shelf display model. It owns the cells, their measured
// positions, and the movement of photos between rows and the store; every
// mutation preserves the rule that a photo is either pooled or displayed,
// never both. All access is serialized by the wall lock; callers outside the
// package go through the exported methods.
type Wall struct {
	mu     sync.Mutex
	rows   map[RowID]*Row
	store  *photo.Store
	rng    *rand.Rand
	opts   Options
	logger *slog.Logger

	// busy marks rows that are mid-choreography; a steal never touches a
	// busy row, and rebuilds triggered by a steal run under the same lock
	// hold as the stealing row's rebuild.
	busy          map[RowID]bool
	lastSignature map[RowID]string
}

// New constructs an empty wall over the given store.
func New(store *photo.Store, rng *rand.Rand, opts Options, logger *slog.Logger) *Wall {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &Wall{
		rows: map[RowID]*Row{
			Top:    {id: Top},
			Bottom: {id: Bottom},
		},
		store:         store,
		rng:           rng,
		opts:          opts,
		logger:        logging.NewComponentLogger(logger, "wall"),
		busy:          map[RowID]bool{},
		lastSignature: map[RowID]string{},
	}
}

// TotalColumns returns the per-row column budget.
func (w *Wall) TotalColumns() int { return w.opts.TotalColumns }

// ColumnWidth returns the pixel width of a single column.
func (w *Wall) ColumnWidth() float64 {
	if w.opts.TotalColumns <= 0 {
		return 0
	}
	return w.opts.ViewportWidth / float64(w.opts.TotalColumns)
}

// RowHeight returns the pixel height of one shelf.
func (w *Wall) RowHeight() float64 { return w.rowHeight() }

// SlotAspect returns the aspect ratio a slot of the given column width
// presents at the current viewport.
func (w *Wall) SlotAspect(width int) float64 { return w.slotAspect(width) }

// CellsOf returns the row's cells in display order. The slice is a copy; the
// cells are live and must only be mutated through UpdateCell.
func (w *Wall) CellsOf(id RowID) []*Cell {
	w.mu.Lock()
	defer w.mu.Unlock()
	row := w.rows[id]
	out := make([]*Cell, len(row.cells))
	copy(out, row.cells)
	return out
}

// Widths returns the row's current slot widths.
func (w *Wall) Widths(id RowID) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[id].widths()
}

// MeasurePositions captures the pixel left edge of every cell in the row,
// keyed by cell. Choreographies call it before and after a mutation to derive
// FLIP deltas.
func (w *Wall) MeasurePositions(id RowID) map[*Cell]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	row := w.rows[id]
	lefts := row.measure(w.opts.ViewportWidth, w.opts.TotalColumns)
	out := make(map[*Cell]float64, len(row.cells))
	for i, c := range row.cells {
		out[c] = lefts[i]
	}
	return out
}

// DisplayedPhotos returns every photo currently on the wall.
func (w *Wall) DisplayedPhotos() []*photo.Photo {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*photo.Photo
	for _, row := range w.rows {
		for _, c := range row.cells {
			out = append(out, c.photos()...)
		}
	}
	return out
}

// MarkLoadFailed flags every cell displaying p so the watchdog can recover
// it. No-op when the photo is not on the wall.
func (w *Wall) MarkLoadFailed(p *photo.Photo) {
	if p == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range w.rows {
		for _, c := range row.cells {
			if c.Photo == p || c.Stacked == p {
				c.LoadFailed = true
			}
		}
	}
}

// UpdateCell applies a visual mutation under the wall lock.
func (w *Wall) UpdateCell(c *Cell, fn func(*Cell)) {
	if c == nil || fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(c)
}

// RemoveCells detaches the given cells from the row. Their photos return to
// the store categorized by orientation; clones are dropped. Returns the
// number of columns vacated.
func (w *Wall) RemoveCells(id RowID, cells []*Cell) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	row := w.rows[id]
	vacated := 0
	remove := make(map[*Cell]bool, len(cells))
	for _, c := range cells {
		remove[c] = true
	}
	kept := row.cells[:0]
	for _, c := range row.cells {
		if !remove[c] {
			kept = append(kept, c)
			continue
		}
		vacated += c.Columns
		w.releaseLocked(c)
	}
	row.cells = kept
	return vacated
}

func (w *Wall) releaseLocked(c *Cell) {
	if c.Clone {
		return
	}
	for _, p := range c.photos() {
		w.store.Add(p)
	}
}

// InsertCell places a cell at the given index, stamping display time on its
// photos. Cells are inserted hidden by choreographies and revealed later.
func (w *Wall) InsertCell(id RowID, index int, c *Cell, now time.Time) {
	if c == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	row := w.rows[id]
	if index < 0 {
		index = 0
	}
	if index > len(row.cells) {
		index = len(row.cells)
	}
	row.cells = append(row.cells, nil)
	copy(row.cells[index+1:], row.cells[index:])
	row.cells[index] = c
	for _, p := range c.photos() {
		p.MarkDisplayed(now)
	}
}

// ColumnsUsed returns the row's occupied column count.
func (w *Wall) ColumnsUsed(id RowID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[id].columnsUsed()
}

// DetachAll empties both rows back into the store. Used by album transitions
// before the working set is replaced.
func (w *Wall) DetachAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range w.rows {
		for _, c := range row.cells {
			w.releaseLocked(c)
		}
		row.cells = nil
	}
}

// Discard empties both rows without returning photos to the store. The
// transition path uses it when the entire working set is being released for
// garbage collection.
func (w *Wall) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range w.rows {
		row.cells = nil
	}
}
