package policy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"photowall/internal/album"
)

func TestHasEnoughMemoryForPrefetch(t *testing.T) {
	if !HasEnoughMemoryForPrefetch(nil, 200) {
		t.Fatal("missing telemetry must be treated as healthy")
	}
	if !HasEnoughMemoryForPrefetch(&MemoryInfo{AvailableMB: 250}, 200) {
		t.Fatal("250MB available should pass a 200MB threshold")
	}
	if HasEnoughMemoryForPrefetch(&MemoryInfo{AvailableMB: 100}, 200) {
		t.Fatal("100MB available should fail a 200MB threshold")
	}
	if !HasEnoughMemoryForPrefetch(&MemoryInfo{AvailableMB: 200}, 200) {
		t.Fatal("exactly the threshold should pass")
	}
}

func TestValidateAlbumData(t *testing.T) {
	if ValidateAlbumData(nil) {
		t.Fatal("nil data must be invalid")
	}
	if ValidateAlbumData(&album.Data{Count: 3}) {
		t.Fatal("missing images must be invalid")
	}
	if ValidateAlbumData(&album.Data{Count: 0, Images: []album.ImageRef{}}) {
		t.Fatal("empty images must be invalid")
	}
	if !ValidateAlbumData(&album.Data{Count: 1, Images: []album.ImageRef{{File: "a.jpg"}}}) {
		t.Fatal("non-empty images must be valid")
	}
	// Malformed individual entries are not this function's concern.
	if !ValidateAlbumData(&album.Data{Count: 1, Images: []album.ImageRef{{}}}) {
		t.Fatal("item-level validation is out of scope")
	}
}

func TestShouldForcedReload(t *testing.T) {
	if !ShouldForcedReload(8, 8) {
		t.Fatal("count equal to interval forces a reload")
	}
	if ShouldForcedReload(7, 8) {
		t.Fatal("count below interval must not force a reload")
	}
	if !ShouldForcedReload(9, 8) {
		t.Fatal("count above interval forces a reload")
	}
}

func TestShouldFallbackToReload(t *testing.T) {
	cases := []struct {
		complete   bool
		loaded     int
		min        int
		wantReload bool
		wantReason string
	}{
		{false, 25, 15, true, ReasonPrefetchIncomplete},
		{true, 10, 15, true, ReasonInsufficientPhotos},
		{true, 15, 15, false, ""},
		{true, 30, 15, false, ""},
	}
	for _, tc := range cases {
		got := ShouldFallbackToReload(tc.complete, tc.loaded, tc.min)
		if got.ShouldReload != tc.wantReload || got.Reason != tc.wantReason {
			t.Fatalf("ShouldFallbackToReload(%v,%d,%d) = %+v, want reload=%v reason=%q",
				tc.complete, tc.loaded, tc.min, got, tc.wantReload, tc.wantReason)
		}
	}
}

func TestClampPrefetchLeadTime(t *testing.T) {
	if got := ClampPrefetchLeadTime(1000000*time.Millisecond, 900000*time.Millisecond, 10000*time.Millisecond); got != 890000*time.Millisecond {
		t.Fatalf("oversized lead should clamp to 890000ms, got %v", got)
	}
	if got := ClampPrefetchLeadTime(60000*time.Millisecond, 900000*time.Millisecond, 10000*time.Millisecond); got != 60000*time.Millisecond {
		t.Fatalf("in-range lead should pass through, got %v", got)
	}
	if got := ClampPrefetchLeadTime(-time.Second, time.Minute, time.Second); got != 0 {
		t.Fatalf("negative lead should clamp to zero, got %v", got)
	}
	if got := ClampPrefetchLeadTime(time.Minute, time.Second, time.Minute); got != 0 {
		t.Fatalf("swap interval beyond refresh should clamp to zero, got %v", got)
	}
}

func TestIsAbortError(t *testing.T) {
	if IsAbortError(nil) {
		t.Fatal("nil is not an abort")
	}
	if !IsAbortError(context.Canceled) {
		t.Fatal("context.Canceled is an abort")
	}
	if !IsAbortError(fmt.Errorf("load image: %w", context.Canceled)) {
		t.Fatal("wrapped cancellation is an abort")
	}
	if IsAbortError(context.DeadlineExceeded) {
		t.Fatal("deadline expiry is a genuine failure, not an abort")
	}
	if !IsAbortError(errors.New("AbortError")) {
		t.Fatal("an error naming itself AbortError is an abort")
	}
	if !IsAbortError(fmt.Errorf("fetch album: %w", errors.New("AbortError"))) {
		t.Fatal("a wrapped AbortError is an abort")
	}
	if IsAbortError(errors.New("decode failed")) {
		t.Fatal("arbitrary errors are not aborts")
	}
}
