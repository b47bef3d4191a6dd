package wall

import (
	"errors"
	"time"

	"photowall/internal/layout"
	"photowall/internal/logging"
	"photowall/internal/photo"
)

// ErrNoPhotos reports that a row could not be built because no photo exists
// anywhere in the session. Every lesser shortage is absorbed by the slot-fill
// fallback chain.
var ErrNoPhotos = errors.New("no photos available to fill row")

// BuildRow constructs the row from scratch: detach the current cells back to
// the store, optionally steal the other row's panorama, generate a fresh slot
// pattern avoiding the other row's signature, and fill every slot. On a steal
// the other row is rebuilt immediately afterward, under the same lock, so the
// two rows never mutate concurrently.
func (w *Wall) BuildRow(id RowID, now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stole := false
	if !w.busy[id.Other()] && w.rng.Float64() < w.opts.StealProbability {
		stole = w.stealPanoramaLocked(id.Other())
	}

	if err := w.buildRowLocked(id, now); err != nil {
		return err
	}
	if stole {
		w.logger.Debug("panorama stolen, rebuilding donor row",
			logging.String(logging.FieldRow, string(id.Other())))
		return w.buildRowLocked(id.Other(), now)
	}
	return nil
}

// MarkBusy flags a row as mid-choreography. Steals never touch a busy row.
func (w *Wall) MarkBusy(id RowID, busy bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy == nil {
		w.busy = map[RowID]bool{}
	}
	w.busy[id] = busy
}

func (w *Wall) stealPanoramaLocked(id RowID) bool {
	row := w.rows[id]
	if !row.hasPanorama() {
		return false
	}
	kept := row.cells[:0]
	stole := false
	for _, c := range row.cells {
		if c.IsPanorama {
			w.releaseLocked(c)
			stole = true
			continue
		}
		kept = append(kept, c)
	}
	row.cells = kept
	return stole
}

func (w *Wall) buildRowLocked(id RowID, now time.Time) error {
	row := w.rows[id]
	for _, c := range row.cells {
		w.releaseLocked(c)
	}
	row.cells = nil

	remaining := w.opts.TotalColumns

	var panoCell *Cell
	panoLeft := false
	if remaining > 2 && w.store.Count(photo.Panorama) > 0 && w.rng.Float64() < w.opts.PanoramaProbability {
		if p := w.store.TakeRandom(photo.Panorama); p != nil {
			columns := layout.PanoramaColumns(p.AspectRatio, w.opts.TotalColumns, w.opts.PanoramaReferenceAspect)
			p.Columns = columns
			panoCell = newCell(p, columns)
			panoCell.IsPanorama = true
			panoCell.PanDuration = layout.PanDuration(
				p.AspectRatio*w.rowHeight(),
				float64(columns)*w.ColumnWidth(),
				w.opts.PanSpeed,
			)
			panoLeft = w.rng.IntN(2) == 0
			remaining -= columns
		}
	}

	pattern := layout.GeneratePattern(w.rng, layout.PatternOptions{
		TotalColumns:        remaining,
		LandscapeCount:      w.store.Count(photo.Landscape),
		PortraitCount:       w.store.Count(photo.Portrait),
		WideSlotProbability: w.opts.WideSlotProbability,
		AvoidSignature:      w.lastSignature[id.Other()],
		AvoidRetries:        w.opts.PatternAvoidRetries,
	})

	// Cells attach as they fill so the clone fallback can see them.
	for _, width := range pattern {
		cell := w.fillSlotLocked(width)
		if cell == nil {
			return ErrNoPhotos
		}
		row.cells = append(row.cells, cell)
	}

	if panoCell != nil {
		if panoLeft {
			row.cells = append([]*Cell{panoCell}, row.cells...)
		} else {
			row.cells = append(row.cells, panoCell)
		}
	}

	for _, c := range row.cells {
		for _, p := range c.photos() {
			p.MarkDisplayed(now)
		}
	}
	if w.lastSignature == nil {
		w.lastSignature = map[RowID]string{}
	}
	w.lastSignature[id] = layout.Signature(row.widths())
	return nil
}

// fillSlotLocked fills one slot of the given width, walking the fallback
// chain: orientation-matched draw, aspect-nearest draw of any orientation,
// and finally a clone of an already-displayed photo. A slot is never left
// unfilled while any photo exists in the session.
func (w *Wall) fillSlotLocked(width int) *Cell {
	if width == 1 && w.store.Count(photo.Landscape) >= 2 &&
		w.rng.Float64() < w.opts.StackedLandscapeProbability {
		first := w.store.TakeRandom(photo.Landscape)
		second := w.store.TakeRandom(photo.Landscape)
		if first != nil && second != nil {
			first.Columns = 1
			second.Columns = 1
			cell := newCell(first, 1)
			cell.Stacked = second
			return cell
		}
		// partial draw; return what was taken
		if first != nil {
			w.store.Add(first)
		}
		if second != nil {
			w.store.Add(second)
		}
	}

	want := photo.Portrait
	if width == 2 {
		want = photo.Landscape
	}
	p := w.store.TakeRandom(want)
	if p == nil {
		p = w.store.TakeNearestAspect(w.slotAspect(width))
	}
	if p == nil {
		return w.cloneCellLocked(width)
	}
	p.Columns = width
	return newCell(p, width)
}

// cloneCellLocked duplicates a random displayed photo rather than leaving a
// gap. The copy is flagged so detaching it never double-inserts the photo
// into the store.
func (w *Wall) cloneCellLocked(width int) *Cell {
	var candidates []*photo.Photo
	for _, row := range w.rows {
		for _, c := range row.cells {
			candidates = append(candidates, c.photos()...)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	src := candidates[w.rng.IntN(len(candidates))]
	dup := *src
	dup.Columns = width
	cell := newCell(&dup, width)
	cell.Clone = true
	return cell
}

// FillCells builds hidden cells consuming exactly the given columns, for the
// staggered fill-in step of a choreography.
func (w *Wall) FillCells(columns int) []*Cell {
	w.mu.Lock()
	defer w.mu.Unlock()
	var cells []*Cell
	for columns > 0 {
		width := 1
		if columns >= 2 && w.rng.Float64() < w.opts.WideSlotProbability {
			width = 2
		}
		cell := w.fillSlotLocked(width)
		if cell == nil {
			break
		}
		cell.Visible = false
		cell.Opacity = 0
		cells = append(cells, cell)
		columns -= width
	}
	return cells
}

// NewReplacementCell wraps a store selection in a hidden cell ready for
// choreographed insertion.
func NewReplacementCell(sel *photo.Selection) *Cell {
	cell := newCell(sel.Photo, sel.Columns)
	cell.IsPanorama = sel.IsPanorama
	cell.Visible = false
	cell.Opacity = 0
	return cell
}

func (w *Wall) slotAspect(width int) float64 {
	height := w.rowHeight()
	if height <= 0 {
		if width == 2 {
			return 1.5
		}
		return 0.75
	}
	return float64(width) * w.ColumnWidth() / height
}

func (w *Wall) rowHeight() float64 {
	return w.opts.ViewportHeight / 2
}
