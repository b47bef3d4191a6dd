package wall

import "time"

// CellSnapshot is an immutable view of one cell for inspection surfaces.
type CellSnapshot struct {
	File        string    `json:"file"`
	StackedFile string    `json:"stacked_file,omitempty"`
	Columns     int       `json:"columns"`
	Left        float64   `json:"left"`
	Opacity     float64   `json:"opacity"`
	OffsetX     float64   `json:"offset_x"`
	Scale       float64   `json:"scale"`
	Visible     bool      `json:"visible"`
	Clone       bool      `json:"clone,omitempty"`
	Panorama    bool      `json:"panorama,omitempty"`
	LoadFailed  bool      `json:"load_failed,omitempty"`
	DisplayedAt time.Time `json:"displayed_at,omitempty"`
}

// RowSnapshot is an immutable view of one shelf.
type RowSnapshot struct {
	ID    RowID          `json:"id"`
	Cells []CellSnapshot `json:"cells"`
}

// Snapshot captures both rows for the inspection API.
func (w *Wall) Snapshot() []RowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]RowSnapshot, 0, 2)
	for _, id := range []RowID{Top, Bottom} {
		row := w.rows[id]
		lefts := row.measure(w.opts.ViewportWidth, w.opts.TotalColumns)
		cells := make([]CellSnapshot, 0, len(row.cells))
		for i, c := range row.cells {
			snap := CellSnapshot{
				Columns:    c.Columns,
				Left:       lefts[i],
				Opacity:    c.Opacity,
				OffsetX:    c.OffsetX,
				Scale:      c.Scale,
				Visible:    c.Visible,
				Clone:      c.Clone,
				Panorama:   c.IsPanorama,
				LoadFailed: c.LoadFailed,
			}
			if c.Photo != nil {
				snap.File = c.Photo.FilePath
				snap.DisplayedAt = c.Photo.DisplayTime
			}
			if c.Stacked != nil {
				snap.StackedFile = c.Stacked.FilePath
			}
			cells = append(cells, snap)
		}
		out = append(out, RowSnapshot{ID: id, Cells: cells})
	}
	return out
}
