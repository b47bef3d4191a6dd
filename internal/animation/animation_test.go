package animation

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/wall"
)

type countingGate struct {
	mu      sync.Mutex
	paused  bool
	pauses  int
	resumes int
}

func (g *countingGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = true
	g.pauses++
}

func (g *countingGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = false
	g.resumes++
}

func testTimings() Timings {
	return Timings{
		Shrink:          6 * time.Millisecond,
		Reflow:          6 * time.Millisecond,
		Slide:           6 * time.Millisecond,
		SlideDelay:      2 * time.Millisecond,
		FillStagger:     1 * time.Millisecond,
		BounceOvershoot: 0.08,
	}
}

func buildTestWall(t *testing.T, seed uint64) (*wall.Wall, *photo.Store) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	store := photo.NewStore(rand.New(rand.NewPCG(seed+2, seed+3)))
	w := wall.New(store, rng, wall.Options{
		TotalColumns:        4,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		WideSlotProbability: 0.6,
		PatternAvoidRetries: 3,
	}, logging.NewNop())
	for i := 0; i < 6; i++ {
		store.Add(photo.New("land.jpg", 1600, 1200, photo.QualityM, 2.8))
		store.Add(photo.New("port.jpg", 1200, 1600, photo.QualityM, 2.8))
	}
	if err := w.BuildRow(wall.Top, time.Now()); err != nil {
		t.Fatalf("build row: %v", err)
	}
	return w, store
}

func TestRun_CompletesAndRestoresInvariants(t *testing.T) {
	w, store := buildTestWall(t, 1)
	gate := &countingGate{}
	c := NewChoreographer(wall.Top, w, testTimings(), gate, logging.NewNop())

	cells := w.CellsOf(wall.Top)
	target := cells[0]
	desired := 0.75
	if target.Columns == 2 {
		desired = 1.5
	}
	sel := store.Select(photo.SelectRequest{DesiredAspect: desired})
	if sel == nil {
		t.Fatal("store unexpectedly empty")
	}
	replacement := wall.NewReplacementCell(sel)
	fillColumns := target.Columns - sel.Columns
	if fillColumns < 0 {
		fillColumns = 0
	}

	committed, err := c.Run(context.Background(), Plan{
		Row:         wall.Top,
		Remove:      []*wall.Cell{target},
		Replacement: replacement,
		InsertIndex: 0,
		FillColumns: fillColumns,
		Gravity:     GravityLeft,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !committed {
		t.Fatal("completed run must report the mutation as committed")
	}

	if used := w.ColumnsUsed(wall.Top); used != 4 {
		t.Fatalf("row should settle at 4 columns, got %d (widths %v)", used, w.Widths(wall.Top))
	}
	if !replacement.Visible || replacement.Opacity != 1 || replacement.OffsetX != 0 {
		t.Fatalf("replacement should settle visible at rest, got %+v", replacement)
	}
	for _, cell := range w.CellsOf(wall.Top) {
		if cell.OffsetX != 0 {
			t.Fatalf("survivor left with nonzero offset %v", cell.OffsetX)
		}
	}
	if gate.pauses != 1 || gate.resumes != 1 {
		t.Fatalf("quality gate should pause and resume exactly once, got %d/%d", gate.pauses, gate.resumes)
	}
	// Removed photo must live in exactly one place: the store.
	if target.Photo.Displayed() {
		t.Fatal("removed photo should no longer carry a display time")
	}
}

func TestRun_NoRemovalResolvesImmediately(t *testing.T) {
	w, _ := buildTestWall(t, 2)
	c := NewChoreographer(wall.Top, w, testTimings(), nil, logging.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), Plan{Row: wall.Top, Gravity: GravityRight})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("empty plan should complete cleanly: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("empty plan should not hang")
	}
}

func TestRun_SupersededRunIsCancelled(t *testing.T) {
	w, store := buildTestWall(t, 3)
	timings := testTimings()
	timings.Shrink = 500 * time.Millisecond
	c := NewChoreographer(wall.Top, w, timings, nil, logging.NewNop())

	type result struct {
		committed bool
		err       error
	}
	cells := w.CellsOf(wall.Top)
	first := make(chan result, 1)
	go func() {
		committed, err := c.Run(context.Background(), Plan{
			Row:     wall.Top,
			Remove:  []*wall.Cell{cells[0]},
			Gravity: GravityLeft,
		})
		first <- result{committed, err}
	}()

	time.Sleep(20 * time.Millisecond)
	sel := store.Select(photo.SelectRequest{DesiredAspect: 0.75})
	if sel == nil {
		t.Fatal("store unexpectedly empty")
	}
	committed, err := c.Run(context.Background(), Plan{
		Row:         wall.Top,
		Remove:      []*wall.Cell{cells[1]},
		Replacement: wall.NewReplacementCell(sel),
		InsertIndex: 1,
		Gravity:     GravityRight,
	})
	if err != nil {
		t.Fatalf("second run should complete: %v", err)
	}
	if !committed {
		t.Fatal("winning run must report the mutation as committed")
	}
	got := <-first
	if !errors.Is(got.err, context.Canceled) {
		t.Fatalf("superseded run should report cancellation, got %v", got.err)
	}
	if got.committed {
		t.Fatal("run cancelled before its mutation must not report a commit")
	}
}

func TestRun_ReducedMotionVanishesInstantly(t *testing.T) {
	w, _ := buildTestWall(t, 4)
	timings := testTimings()
	timings.ReducedMotion = true
	timings.Shrink = 10 * time.Second // must not be waited
	c := NewChoreographer(wall.Top, w, timings, nil, logging.NewNop())

	cells := w.CellsOf(wall.Top)
	start := time.Now()
	_, err := c.Run(context.Background(), Plan{
		Row:     wall.Top,
		Remove:  []*wall.Cell{cells[0]},
		Gravity: GravityLeft,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("reduced motion should skip the shrink wait, took %v", elapsed)
	}
}

func TestRun_GatePairsPauseWithResume(t *testing.T) {
	w, _ := buildTestWall(t, 5)
	gate := &countingGate{}
	c := NewChoreographer(wall.Top, w, testTimings(), gate, logging.NewNop())

	runs := 0
	for runs < 3 {
		cells := w.CellsOf(wall.Top)
		if len(cells) == 0 {
			break
		}
		if _, err := c.Run(context.Background(), Plan{
			Row:     wall.Top,
			Remove:  []*wall.Cell{cells[0]},
			Gravity: GravityRight,
		}); err != nil {
			t.Fatalf("run %d: %v", runs, err)
		}
		runs++
	}
	if gate.pauses != runs || gate.resumes != runs {
		t.Fatalf("expected matched pause/resume pairs, got %d/%d", gate.pauses, gate.resumes)
	}
	if gate.paused {
		t.Fatal("gate should be released once runs finish")
	}
}

func TestRun_ReplacementSeatsAtEntryEdge(t *testing.T) {
	tests := []struct {
		name    string
		gravity Gravity
	}{
		{"left gravity enters from the right", GravityLeft},
		{"right gravity enters from the left", GravityRight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, store := buildTestWall(t, 6)
			c := NewChoreographer(wall.Top, w, testTimings(), nil, logging.NewNop())

			cells := w.CellsOf(wall.Top)
			remove := []*wall.Cell{cells[0], cells[1]}
			vacated := cells[0].Columns + cells[1].Columns
			sel := store.Select(photo.SelectRequest{DesiredAspect: 0.75})
			if sel == nil {
				t.Fatal("store unexpectedly empty")
			}
			replacement := wall.NewReplacementCell(sel)
			fill := vacated - replacement.Columns
			if fill < 0 {
				fill = 0
			}
			committed, err := c.Run(context.Background(), Plan{
				Row:         wall.Top,
				Remove:      remove,
				Replacement: replacement,
				InsertIndex: 0,
				FillColumns: fill,
				Gravity:     tt.gravity,
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !committed {
				t.Fatal("completed run must report the mutation as committed")
			}

			after := w.CellsOf(wall.Top)
			idx := -1
			for i, cc := range after {
				if cc == replacement {
					idx = i
				}
			}
			if idx < 0 {
				t.Fatal("replacement missing from the row")
			}
			survivors := len(cells) - len(remove)
			inserted := len(after) - survivors
			switch tt.gravity {
			case GravityLeft:
				if idx != inserted-1 {
					t.Fatalf("left gravity should seat the replacement at the right end of the gap, got index %d of %d inserted", idx, inserted)
				}
			case GravityRight:
				if idx != 0 {
					t.Fatalf("right gravity should seat the replacement at the left end of the gap, got index %d", idx)
				}
			}
		})
	}
}

func TestMaxDuration(t *testing.T) {
	timings := testTimings()
	if timings.MaxDuration() <= timings.Shrink {
		t.Fatal("max duration must cover more than the shrink phase")
	}
}
