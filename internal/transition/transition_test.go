package transition

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"photowall/internal/album"
	"photowall/internal/loader"
	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/policy"
	"photowall/internal/testsupport"
	"photowall/internal/wall"
)

func fixtureSet() []testsupport.AlbumFixture {
	return []testsupport.AlbumFixture{
		{File: "a.jpg", Width: 800, Height: 600},
		{File: "b.jpg", Width: 600, Height: 800},
		{File: "c.jpg", Width: 1600, Height: 500},
		{File: "d.jpg", Width: 900, Height: 600},
		{File: "e.jpg", Width: 640, Height: 480},
		{File: "f.jpg", Width: 480, Height: 640},
	}
}

type hookRecorder struct {
	reloads   []string
	albums    []string
	restarted int
	kicked    int
	memory    *policy.MemoryInfo
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{
		Reload:       func(reason string) { h.reloads = append(h.reloads, reason) },
		AlbumChanged: func(label string) { h.albums = append(h.albums, label) },
		RestartSwaps: func() { h.restarted++ },
		KickUpgrades: func(context.Context) { h.kicked++ },
		MemoryInfo:   func() *policy.MemoryInfo { return h.memory },
	}
}

func newTestManager(t *testing.T, opts Options, hooks Hooks) (*Manager, *photo.Store, *wall.Wall) {
	t.Helper()
	server := testsupport.NewAlbumServer(t, fixtureSet(), nil)
	client := album.NewClient(server.URL, 2.8, logging.NewNop())
	ld := loader.New(client, loader.Options{
		InitialBatchSize: 6,
		BatchSize:        5,
		LoadTimeout:      5 * time.Second,
	}, logging.NewNop())
	store := photo.NewStore(rand.New(rand.NewPCG(11, 12)))
	w := wall.New(store, rand.New(rand.NewPCG(13, 14)), wall.Options{
		TotalColumns:        4,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		WideSlotProbability: 0.6,
		PatternAvoidRetries: 3,
	}, logging.NewNop())
	return New(client, ld, store, w, opts, hooks, logging.NewNop()), store, w
}

func testOptions() Options {
	return Options{
		PhotosPerAlbum:       6,
		RefreshInterval:      time.Hour,
		PrefetchLeadTime:     time.Minute,
		SwapInterval:         10 * time.Second,
		MinPrefetchedPhotos:  3,
		ForcedReloadInterval: 8,
		MemoryThresholdMB:    10,
		FetchRetryInterval:   10 * time.Millisecond,
	}
}

func waitPrefetchComplete(t *testing.T, m *Manager) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if m.Status().PrefetchComplete {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("prefetch never completed")
}

func TestPrefetchThenSeamlessTransition(t *testing.T) {
	rec := &hookRecorder{memory: &policy.MemoryInfo{AvailableMB: 500}}
	m, store, w := newTestManager(t, testOptions(), rec.hooks())

	ctx := context.Background()
	m.StartPrefetch(ctx)
	waitPrefetchComplete(t, m)
	if got := m.Status().PrefetchedPhotos; got != 6 {
		t.Fatalf("expected 6 prefetched photos, got %d", got)
	}

	m.TransitionNow(ctx)

	if len(rec.reloads) != 0 {
		t.Fatalf("complete prefetch should not reload, got %v", rec.reloads)
	}
	if len(rec.albums) != 1 {
		t.Fatalf("expected one album change, got %v", rec.albums)
	}
	if rec.restarted != 1 || rec.kicked != 1 {
		t.Fatalf("swap restart and upgrade kick should each fire once, got %d/%d", rec.restarted, rec.kicked)
	}
	st := m.Status()
	if st.Transitions != 1 {
		t.Fatalf("transition counter should advance, got %d", st.Transitions)
	}
	if st.PrefetchStarted || st.PrefetchComplete {
		t.Fatal("prefetch state should reset after consumption")
	}
	if w.ColumnsUsed(wall.Top) != 4 || w.ColumnsUsed(wall.Bottom) != 4 {
		t.Fatalf("both rows should rebuild full, got %d/%d",
			w.ColumnsUsed(wall.Top), w.ColumnsUsed(wall.Bottom))
	}
	onWall := len(w.DisplayedPhotos())
	if store.Len()+onWall < 6 {
		t.Fatalf("prefetched photos should land in store or rows, store=%d wall=%d", store.Len(), onWall)
	}
}

func TestSeamlessTransition_FadesRebuiltRowsIn(t *testing.T) {
	rec := &hookRecorder{memory: &policy.MemoryInfo{AvailableMB: 500}}
	opts := testOptions()
	opts.FadeDuration = 5 * time.Millisecond
	m, _, w := newTestManager(t, opts, rec.hooks())

	ctx := context.Background()
	m.StartPrefetch(ctx)
	waitPrefetchComplete(t, m)
	m.TransitionNow(ctx)

	if len(rec.reloads) != 0 {
		t.Fatalf("complete prefetch should not reload, got %v", rec.reloads)
	}
	for _, row := range []wall.RowID{wall.Top, wall.Bottom} {
		for i, c := range w.CellsOf(row) {
			if !c.Visible || c.Opacity != 1 {
				t.Fatalf("%s cell %d should settle fully faded in, got visible=%v opacity=%v",
					row, i, c.Visible, c.Opacity)
			}
		}
	}
}

func TestTransitionNow_IncompletePrefetchFallsBack(t *testing.T) {
	rec := &hookRecorder{memory: &policy.MemoryInfo{AvailableMB: 500}}
	m, _, _ := newTestManager(t, testOptions(), rec.hooks())

	m.TransitionNow(context.Background())

	if len(rec.reloads) != 1 || rec.reloads[0] != policy.ReasonPrefetchIncomplete {
		t.Fatalf("expected incomplete-prefetch reload, got %v", rec.reloads)
	}
	if len(rec.albums) != 0 {
		t.Fatal("fallback reload must not report an album change")
	}
	if m.Status().Transitions != 1 {
		t.Fatal("reload still counts as a transition")
	}
}

func TestTransitionNow_TooFewPhotosFallsBack(t *testing.T) {
	rec := &hookRecorder{memory: &policy.MemoryInfo{AvailableMB: 500}}
	opts := testOptions()
	opts.MinPrefetchedPhotos = 50
	m, _, _ := newTestManager(t, opts, rec.hooks())

	ctx := context.Background()
	m.StartPrefetch(ctx)
	waitPrefetchComplete(t, m)
	m.TransitionNow(ctx)

	if len(rec.reloads) != 1 || rec.reloads[0] != policy.ReasonInsufficientPhotos {
		t.Fatalf("expected insufficient-photos reload, got %v", rec.reloads)
	}
}

func TestTransitionNow_ForcedReloadWinsOverPrefetch(t *testing.T) {
	rec := &hookRecorder{memory: &policy.MemoryInfo{AvailableMB: 500}}
	m, _, _ := newTestManager(t, testOptions(), rec.hooks())

	ctx := context.Background()
	m.StartPrefetch(ctx)
	waitPrefetchComplete(t, m)
	m.transitions = 8

	m.TransitionNow(ctx)

	if len(rec.reloads) != 1 {
		t.Fatalf("forced boundary should reload even with a complete prefetch, got %v", rec.reloads)
	}
	if len(rec.albums) != 0 {
		t.Fatal("forced reload must not perform the seamless swap")
	}
}

func TestStartPrefetch_LowMemorySkips(t *testing.T) {
	rec := &hookRecorder{memory: &policy.MemoryInfo{AvailableMB: 1}}
	m, _, _ := newTestManager(t, testOptions(), rec.hooks())

	m.StartPrefetch(context.Background())

	st := m.Status()
	if st.PrefetchStarted || st.PrefetchComplete {
		t.Fatal("low memory should skip the prefetch entirely")
	}
}

func TestStartPrefetch_SupersedesPrevious(t *testing.T) {
	rec := &hookRecorder{memory: &policy.MemoryInfo{AvailableMB: 500}}
	m, _, _ := newTestManager(t, testOptions(), rec.hooks())

	ctx := context.Background()
	m.StartPrefetch(ctx)
	m.StartPrefetch(ctx)
	waitPrefetchComplete(t, m)

	if got := m.Status().PrefetchedPhotos; got != 6 {
		t.Fatalf("superseding prefetch should own the state, got %d photos", got)
	}
	m.Stop()
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "separators", in: "summer_trip-2024", want: "Summer Trip 2024"},
		{name: "already clean", in: "Holiday Snaps", want: "Holiday Snaps"},
		{name: "lowercase words", in: "beach days", want: "Beach Days"},
		{name: "empty", in: "", want: ""},
		{name: "collapses spaces", in: "a__b", want: "A B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.in); got != tt.want {
				t.Fatalf("Label(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
