package engine

import (
	"context"
	"testing"
	"time"

	"photowall/internal/config"
	"photowall/internal/logging"
	"photowall/internal/testsupport"
)

func testConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Album.Endpoint = endpoint
	cfg.Album.PhotosPerAlbum = 8
	cfg.Album.RefreshInterval = 3600
	cfg.Album.FetchRetryInterval = 1
	cfg.Swap.Interval = 3600
	cfg.Watchdog.Interval = 3600
	cfg.Loader.InitialBatchSize = 8
	cfg.Loader.LoadTimeout = 5
	cfg.Animation.ShrinkDuration = 5
	cfg.Animation.ReflowDuration = 5
	cfg.Animation.SlideDuration = 5
	cfg.Animation.SlideDelay = 1
	cfg.Animation.FillStagger = 1
	return &cfg
}

func fixtures() []testsupport.AlbumFixture {
	return []testsupport.AlbumFixture{
		{File: "a.jpg", Width: 800, Height: 600},
		{File: "b.jpg", Width: 600, Height: 800},
		{File: "c.jpg", Width: 1600, Height: 500},
		{File: "d.jpg", Width: 900, Height: 600},
		{File: "e.jpg", Width: 640, Height: 480},
		{File: "f.jpg", Width: 480, Height: 640},
		{File: "g.jpg", Width: 1024, Height: 768},
		{File: "h.jpg", Width: 768, Height: 1024},
	}
}

func TestEngine_StartPaintsBothRows(t *testing.T) {
	server := testsupport.NewAlbumServer(t, fixtures(), nil)
	e := New(testConfig(server.URL), logging.NewNop())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	st := e.Status()
	if !st.Running {
		t.Fatal("status should report running")
	}
	if st.Album == "" {
		t.Fatal("status should carry the opening album label")
	}
	if len(st.Wall) != 2 {
		t.Fatalf("expected 2 row snapshots, got %d", len(st.Wall))
	}
	for _, row := range st.Wall {
		columns := 0
		for _, c := range row.Cells {
			columns += c.Columns
		}
		if columns != 4 {
			t.Fatalf("row %s paints %d columns, want 4", row.ID, columns)
		}
	}
}

func TestEngine_StartFailsWithoutServer(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	e := New(cfg, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Start(ctx); err == nil {
		e.Stop()
		t.Fatal("start should fail when the album endpoint is unreachable")
	}
}

func TestEngine_ReloadRebuildsSession(t *testing.T) {
	server := testsupport.NewAlbumServer(t, fixtures(), nil)
	e := New(testConfig(server.URL), logging.NewNop())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	e.RequestReload("test requested")

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		st := e.Status()
		if st.Reloads == 1 && len(st.Wall) == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session never rebuilt; status %+v", e.Status())
}

func TestEngine_StopClearsSession(t *testing.T) {
	server := testsupport.NewAlbumServer(t, fixtures(), nil)
	e := New(testConfig(server.URL), logging.NewNop())

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	e.Stop()

	st := e.Status()
	if st.Running {
		t.Fatal("stopped engine should not report running")
	}
	if e.WallSnapshot() != nil {
		t.Fatal("stopped engine should have no wall")
	}
	e.Stop()
}

func TestEngine_DoubleStartRejected(t *testing.T) {
	server := testsupport.NewAlbumServer(t, fixtures(), nil)
	e := New(testConfig(server.URL), logging.NewNop())

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()
	if err := e.Start(ctx); err == nil {
		t.Fatal("second start should be rejected")
	}
}
