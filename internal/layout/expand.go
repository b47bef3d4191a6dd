package layout

import "sort"

// Expansion is the outcome of making room for a replacement photo: the slot
// indices to vacate (always including the swap target) and the columns left
// over after the replacement takes its share.
type Expansion struct {
	Indices []int
	Extra   int
}

// ExpandSpace determines which slots must be vacated so that a photo needing
// the given columns can take the target slot's place. Starting from the
// target it consumes one adjacent slot per step, following the initial
// direction until the row boundary and then the opposite direction, summing
// vacated columns until the need is met. Returns nil when both directions
// exhaust before enough columns accumulate; a failed expansion never
// partially succeeds.
func ExpandSpace(widths []int, target, needed int, startRight bool) *Expansion {
	if target < 0 || target >= len(widths) || needed <= 0 {
		return nil
	}

	acquired := widths[target]
	indices := []int{target}
	left := target - 1
	right := target + 1

	takeRight := func() bool {
		if right >= len(widths) {
			return false
		}
		acquired += widths[right]
		indices = append(indices, right)
		right++
		return true
	}
	takeLeft := func() bool {
		if left < 0 {
			return false
		}
		acquired += widths[left]
		indices = append(indices, left)
		left--
		return true
	}

	first, second := takeRight, takeLeft
	if !startRight {
		first, second = takeLeft, takeRight
	}

	for acquired < needed {
		if first() {
			continue
		}
		if second() {
			continue
		}
		return nil
	}

	sort.Ints(indices)
	return &Expansion{Indices: indices, Extra: acquired - needed}
}
