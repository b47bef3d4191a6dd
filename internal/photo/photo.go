package photo

import (
	"fmt"
	"time"
)

// Orientation buckets photos by shape for pooling and slot assignment.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
	Panorama  Orientation = "panorama"
)

// Quality is an ordered image resolution tier. Higher values are sharper.
type Quality int

const (
	QualityM Quality = iota
	QualityXL
	QualityOriginal
)

// String returns the path token for the quality tier.
func (q Quality) String() string {
	switch q {
	case QualityM:
		return "M"
	case QualityXL:
		return "XL"
	case QualityOriginal:
		return "original"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// Photo is a loaded image plus its placement metadata.
//
// FilePath is the stable identity: thumbnail URLs at any quality tier are
// re-derived from it. DisplayTime is zero while the photo sits in the store;
// the zero value is an explicit "just entered, not yet eligible" sentinel for
// replacement selection, not a missing field. Columns is the slot width the
// photo occupies while displayed (1 or 2, wider for panoramas).
type Photo struct {
	FilePath    string
	Width       int
	Height      int
	AspectRatio float64
	Orientation Orientation
	Quality     Quality
	DisplayTime time.Time
	Columns     int
}

// Classify buckets an aspect ratio. A photo is a panorama iff its aspect
// ratio exceeds panoramaMinAspect, independent of the landscape test.
func Classify(aspectRatio, panoramaMinAspect float64) Orientation {
	if aspectRatio > panoramaMinAspect {
		return Panorama
	}
	if aspectRatio > 1 {
		return Landscape
	}
	return Portrait
}

// New builds a Photo from pixel dimensions, classifying its orientation.
func New(filePath string, width, height int, quality Quality, panoramaMinAspect float64) *Photo {
	aspect := 1.0
	if height > 0 {
		aspect = float64(width) / float64(height)
	}
	return &Photo{
		FilePath:    filePath,
		Width:       width,
		Height:      height,
		AspectRatio: aspect,
		Orientation: Classify(aspect, panoramaMinAspect),
		Quality:     quality,
		Columns:     1,
	}
}

// Promote raises the quality tier and refreshes pixel dimensions from the
// sharper variant. Orientation is settled at load time and does not change.
// Promoting to the current tier or below is a no-op.
func (p *Photo) Promote(q Quality, width, height int) bool {
	if q <= p.Quality {
		return false
	}
	p.Quality = q
	if width > 0 && height > 0 {
		p.Width = width
		p.Height = height
	}
	return true
}

// Displayed reports whether the photo has been placed into a visible row.
func (p *Photo) Displayed() bool {
	return !p.DisplayTime.IsZero()
}

// MarkDisplayed stamps the placement time used by replacement weighting.
func (p *Photo) MarkDisplayed(now time.Time) {
	p.DisplayTime = now
}

// MarkStored clears placement state when the photo returns to the store.
func (p *Photo) MarkStored() {
	p.DisplayTime = time.Time{}
	p.Columns = 1
}
