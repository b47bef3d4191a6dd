// Package policy holds the pure decision functions behind album transitions
// and prefetching. Nothing here touches the wall, the network, or the clock;
// callers gather the inputs and act on the answers. That keeps every reload
// and prefetch decision unit-testable in isolation.
package policy

import (
	"context"
	"errors"
	"time"

	"photowall/internal/album"
)

// Reload reasons reported by ShouldFallbackToReload.
const (
	ReasonPrefetchIncomplete = "prefetch_incomplete"
	ReasonInsufficientPhotos = "insufficient_photos"
)

// MemoryInfo is a snapshot of heap telemetry. A nil value means the
// measurement is unavailable.
type MemoryInfo struct {
	AvailableMB float64
}

// HasEnoughMemoryForPrefetch reports whether prefetching another album is
// safe. Missing telemetry is treated as healthy; prefetch must never be
// blocked on instrumentation that a platform does not provide.
func HasEnoughMemoryForPrefetch(info *MemoryInfo, thresholdMB float64) bool {
	if info == nil {
		return true
	}
	return info.AvailableMB >= thresholdMB
}

// ValidateAlbumData reports whether fetched album data is usable: non-nil
// with a non-empty image list. Item-level validation is out of scope here;
// individual entries are vetted when their images load.
func ValidateAlbumData(data *album.Data) bool {
	if data == nil {
		return false
	}
	return len(data.Images) > 0
}

// ShouldForcedReload reports whether the transition counter has reached the
// forced full-reload interval.
func ShouldForcedReload(count, interval int) bool {
	return count >= interval
}

// ReloadDecision is the outcome of the transition-boundary fallback check.
type ReloadDecision struct {
	ShouldReload bool
	Reason       string
}

// ShouldFallbackToReload decides whether a seamless album transition must be
// abandoned in favor of a full reload. Exactly minPhotos loaded photos is
// enough; the boundary passes.
func ShouldFallbackToReload(prefetchComplete bool, loadedPhotos, minPhotos int) ReloadDecision {
	if !prefetchComplete {
		return ReloadDecision{ShouldReload: true, Reason: ReasonPrefetchIncomplete}
	}
	if loadedPhotos < minPhotos {
		return ReloadDecision{ShouldReload: true, Reason: ReasonInsufficientPhotos}
	}
	return ReloadDecision{}
}

// ClampPrefetchLeadTime bounds the prefetch lead time so a misconfigured
// value can neither fire immediately on startup nor reach past the refresh
// boundary. The ceiling leaves room for one final swap before the transition.
func ClampPrefetchLeadTime(lead, refreshInterval, swapInterval time.Duration) time.Duration {
	max := refreshInterval - swapInterval
	if max < 0 {
		max = 0
	}
	if lead < 0 {
		return 0
	}
	if lead > max {
		return max
	}
	return lead
}

// IsAbortError reports whether err marks a deliberately cancelled operation.
// Cancellation is never an error condition: superseded prefetches and
// abandoned image loads resolve this way and must not be logged or retried.
// Besides context.Canceled, any wrapped error naming itself "AbortError"
// counts; external image sources surface cancellation under that name.
// Deadline expiry is a genuine failure and is excluded.
func IsAbortError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if e.Error() == "AbortError" {
			return true
		}
	}
	return false
}
