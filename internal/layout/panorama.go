package layout

import (
	"math"
	"time"
)

// PanoramaColumns computes the slot width a panorama occupies: proportional
// to its aspect ratio against a reference, bounded so at least one other slot
// still fits in the row.
func PanoramaColumns(aspectRatio float64, totalColumns int, referenceAspect float64) int {
	if referenceAspect <= 0 || totalColumns <= 2 {
		return 2
	}
	columns := int(math.Round(float64(totalColumns) * aspectRatio / referenceAspect))
	if columns < 2 {
		columns = 2
	}
	if max := totalColumns - 1; columns > max {
		columns = max
	}
	return columns
}

// PanDuration returns how long a panorama's horizontal pan should take to
// traverse its overflow at the configured speed. Zero when the image fits.
func PanDuration(naturalWidth, slotWidth float64, panSpeed float64) time.Duration {
	overflow := naturalWidth - slotWidth
	if overflow <= 0 || panSpeed <= 0 {
		return 0
	}
	return time.Duration(overflow / panSpeed * float64(time.Second))
}
