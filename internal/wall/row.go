package wall

// RowID names one of the two shelves.
type RowID string

const (
	Top    RowID = "top"
	Bottom RowID = "bottom"
)

// Other returns the opposite shelf.
func (id RowID) Other() RowID {
	if id == Top {
		return Bottom
	}
	return Top
}

// Row is an ordered sequence of displayed cells on one shelf. Slot widths
// always sum to the row's column budget while the row is settled; during a
// choreography the invariant is restored by the DOM-equivalent mutation step.
type Row struct {
	id    RowID
	cells []*Cell
}

// ID returns the shelf name.
func (r *Row) ID() RowID { return r.id }

func (r *Row) widths() []int {
	widths := make([]int, len(r.cells))
	for i, c := range r.cells {
		widths[i] = c.Columns
	}
	return widths
}

func (r *Row) columnsUsed() int {
	total := 0
	for _, c := range r.cells {
		total += c.Columns
	}
	return total
}

// measure returns the pixel left edge of every cell given the viewport and
// column budget. This is the First/Last capture that FLIP deltas come from.
func (r *Row) measure(viewportWidth float64, totalColumns int) []float64 {
	if totalColumns <= 0 {
		return make([]float64, len(r.cells))
	}
	columnWidth := viewportWidth / float64(totalColumns)
	lefts := make([]float64, len(r.cells))
	columns := 0
	for i, c := range r.cells {
		lefts[i] = float64(columns) * columnWidth
		columns += c.Columns
	}
	return lefts
}

func (r *Row) hasPanorama() bool {
	for _, c := range r.cells {
		if c.IsPanorama {
			return true
		}
	}
	return false
}
