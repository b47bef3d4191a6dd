package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"photowall/internal/album"
	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/testsupport"
)

func fixtureSet() []testsupport.AlbumFixture {
	return []testsupport.AlbumFixture{
		{File: "a.jpg", Width: 800, Height: 600},
		{File: "b.jpg", Width: 600, Height: 800},
		{File: "c.jpg", Width: 1600, Height: 500},
		{File: "d.jpg", Width: 900, Height: 600},
		{File: "e.jpg", Width: 640, Height: 480},
	}
}

func refs(fixtures []testsupport.AlbumFixture) []album.ImageRef {
	out := make([]album.ImageRef, len(fixtures))
	for i, f := range fixtures {
		out[i] = album.ImageRef{File: f.File, Width: f.Width, Height: f.Height}
	}
	return out
}

func newTestLoader(t *testing.T, fixtures []testsupport.AlbumFixture, missing map[string]bool, opts Options) *Loader {
	t.Helper()
	server := testsupport.NewAlbumServer(t, fixtures, missing)
	client := album.NewClient(server.URL, 2.8, logging.NewNop())
	return New(client, opts, logging.NewNop())
}

func TestLoadInitial_TrimsToBatchSize(t *testing.T) {
	fixtures := fixtureSet()
	l := newTestLoader(t, fixtures, nil, Options{InitialBatchSize: 2, BatchSize: 2, LoadTimeout: 5 * time.Second})

	data := &album.Data{Name: "test", Count: len(fixtures), Images: refs(fixtures)}
	photos, err := l.LoadInitial(context.Background(), data)
	if err != nil {
		t.Fatalf("load initial: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("expected 2 initial photos, got %d", len(photos))
	}
	for _, p := range photos {
		if p.Quality != photo.QualityM {
			t.Fatalf("initial batch should load the low tier, got %s", p.Quality)
		}
	}

	rest, err := l.LoadRemainder(context.Background(), data)
	if err != nil {
		t.Fatalf("load remainder: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("expected 3 remainder photos, got %d", len(rest))
	}
}

func TestLoadRefs_DropsFailedEntries(t *testing.T) {
	fixtures := fixtureSet()
	// b.jpg vanishes at every tier including the original.
	missing := map[string]bool{
		"/thumbs/M/b.jpg":  true,
		"/thumbs/XL/b.jpg": true,
		"/photos/b.jpg":    true,
	}
	l := newTestLoader(t, fixtures, missing, Options{InitialBatchSize: 5, BatchSize: 5, LoadTimeout: 5 * time.Second})

	photos, err := l.LoadRefs(context.Background(), refs(fixtures), photo.QualityM)
	if err != nil {
		t.Fatalf("batch should tolerate partial failure: %v", err)
	}
	if len(photos) != 4 {
		t.Fatalf("expected 4 survivors, got %d", len(photos))
	}
	for _, p := range photos {
		if p.FilePath == "b.jpg" {
			t.Fatal("failed entry should be dropped from the batch")
		}
	}
}

func TestLoadRefs_MissingVariantFallsBackToOriginal(t *testing.T) {
	fixtures := fixtureSet()
	missing := map[string]bool{"/thumbs/M/c.jpg": true}
	l := newTestLoader(t, fixtures, missing, Options{InitialBatchSize: 5, BatchSize: 5, LoadTimeout: 5 * time.Second})

	photos, err := l.LoadRefs(context.Background(), refs(fixtures), photo.QualityM)
	if err != nil {
		t.Fatalf("load refs: %v", err)
	}
	var c *photo.Photo
	for _, p := range photos {
		if p.FilePath == "c.jpg" {
			c = p
		}
	}
	if c == nil {
		t.Fatal("c.jpg should load via the original fallback")
	}
	if c.Quality != photo.QualityOriginal {
		t.Fatalf("fallback load should carry the original tier, got %s", c.Quality)
	}
}

func TestLoadRefs_CancellationAborts(t *testing.T) {
	fixtures := fixtureSet()
	l := newTestLoader(t, fixtures, nil, Options{InitialBatchSize: 5, BatchSize: 5, LoadTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.LoadRefs(ctx, refs(fixtures), photo.QualityM)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled batch should surface the context error, got %v", err)
	}
}

func TestUpgradeLoaded_PromotesTrackedPhotos(t *testing.T) {
	fixtures := fixtureSet()
	l := newTestLoader(t, fixtures, nil, Options{
		InitialBatchSize: 5,
		BatchSize:        2,
		LoadTimeout:      5 * time.Second,
		UpgradeDelay:     time.Millisecond,
	})

	photos, err := l.LoadRefs(context.Background(), refs(fixtures), photo.QualityM)
	if err != nil {
		t.Fatalf("load refs: %v", err)
	}
	l.Track(photos)

	if err := l.UpgradeLoaded(context.Background()); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	for _, p := range photos {
		if p.Quality < photo.QualityXL {
			t.Fatalf("%s should be promoted, still at %s", p.FilePath, p.Quality)
		}
	}
}

func TestUpgradeLoaded_DefersWhileGateHeld(t *testing.T) {
	fixtures := fixtureSet()[:2]
	l := newTestLoader(t, fixtures, nil, Options{
		InitialBatchSize: 2,
		BatchSize:        2,
		LoadTimeout:      5 * time.Second,
		UpgradeDelay:     time.Millisecond,
	})

	photos, err := l.LoadRefs(context.Background(), refs(fixtures), photo.QualityM)
	if err != nil {
		t.Fatalf("load refs: %v", err)
	}
	l.Track(photos)

	l.Pause()
	done := make(chan error, 1)
	go func() {
		done <- l.UpgradeLoaded(context.Background())
	}()

	select {
	case err := <-done:
		t.Fatalf("upgrade should defer while the gate is held, finished with %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	for _, p := range photos {
		if p.Quality != photo.QualityM {
			t.Fatalf("%s upgraded while gate held", p.FilePath)
		}
	}

	l.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("upgrade after resume: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("upgrade never resumed")
	}
	for _, p := range photos {
		if p.Quality < photo.QualityXL {
			t.Fatalf("%s should be promoted after resume, still at %s", p.FilePath, p.Quality)
		}
	}
}

func TestUpgradeLoaded_ReportsFailedPhotos(t *testing.T) {
	fixtures := fixtureSet()[:2]
	// a.jpg loads at the low tier but every sharper variant is gone.
	missing := map[string]bool{
		"/thumbs/XL/a.jpg": true,
		"/photos/a.jpg":    true,
	}
	l := newTestLoader(t, fixtures, missing, Options{
		InitialBatchSize: 2,
		BatchSize:        2,
		LoadTimeout:      5 * time.Second,
	})

	photos, err := l.LoadRefs(context.Background(), refs(fixtures), photo.QualityM)
	if err != nil {
		t.Fatalf("load refs: %v", err)
	}
	l.Track(photos)

	var failed []string
	l.OnLoadFailure(func(p *photo.Photo) { failed = append(failed, p.FilePath) })

	if err := l.UpgradeLoaded(context.Background()); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if len(failed) != 1 || failed[0] != "a.jpg" {
		t.Fatalf("failed upgrade should be reported exactly once, got %v", failed)
	}
	for _, p := range photos {
		if p.FilePath == "a.jpg" && p.Quality != photo.QualityM {
			t.Fatalf("failed upgrade must keep the current tier, got %s", p.Quality)
		}
	}
}

func TestUpgradeLoaded_IdempotentForSharpPhotos(t *testing.T) {
	fixtures := fixtureSet()[:1]
	l := newTestLoader(t, fixtures, nil, Options{InitialBatchSize: 1, BatchSize: 1, LoadTimeout: 5 * time.Second})

	photos, err := l.LoadRefs(context.Background(), refs(fixtures), photo.QualityOriginal)
	if err != nil {
		t.Fatalf("load refs: %v", err)
	}
	l.Track(photos)
	before := *photos[0]

	if err := l.UpgradeLoaded(context.Background()); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if *photos[0] != before {
		t.Fatal("upgrading an already-sharp photo must be a no-op")
	}
}

func TestReset_ClearsTrackedPhotos(t *testing.T) {
	fixtures := fixtureSet()[:1]
	l := newTestLoader(t, fixtures, nil, Options{InitialBatchSize: 1, BatchSize: 1, LoadTimeout: 5 * time.Second})

	photos, err := l.LoadRefs(context.Background(), refs(fixtures), photo.QualityM)
	if err != nil {
		t.Fatalf("load refs: %v", err)
	}
	l.Track(photos)
	l.Reset()

	if err := l.UpgradeLoaded(context.Background()); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if photos[0].Quality != photo.QualityM {
		t.Fatal("reset loader should not touch previously tracked photos")
	}
}
