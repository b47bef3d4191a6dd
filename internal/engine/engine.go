package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"photowall/internal/album"
	"photowall/internal/animation"
	"photowall/internal/config"
	"photowall/internal/loader"
	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/policy"
	"photowall/internal/scheduler"
	"photowall/internal/transition"
	"photowall/internal/wall"
	"photowall/internal/watchdog"
)

// Engine owns one display session end to end: the store, the wall, the
// per-row choreographers, the swap scheduler, the album transition manager,
// the progressive loader, and the watchdog. A full reload tears the session
// down and builds a fresh one in-process.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	session   *session
	startedAt time.Time
	album     string
	reloads   int

	reloadCh chan string
}

// New constructs an engine from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "engine"),
		reloadCh: make(chan string, 4),
	}
}

// Start builds the first session and begins the reload supervisor.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.startedAt = time.Now()
	e.mu.Unlock()

	sess, err := e.buildSession(runCtx)
	if err != nil {
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
		cancel()
		return err
	}
	e.mu.Lock()
	e.session = sess
	e.mu.Unlock()

	e.wg.Add(1)
	go e.supervise(runCtx)
	return nil
}

// Stop tears the session down and waits for background work.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	sess := e.session
	e.session = nil
	e.mu.Unlock()

	cancel()
	if sess != nil {
		sess.stop()
	}
	e.wg.Wait()
}

// RequestReload asks the supervisor for a full in-process session rebuild.
func (e *Engine) RequestReload(reason string) {
	select {
	case e.reloadCh <- reason:
	default:
		// A rebuild is already queued; one covers every pending request.
	}
}

// supervise rebuilds the session whenever a reload is requested. Session
// construction can fail transiently (album server down), so rebuilds retry
// on the fetch-retry cadence.
func (e *Engine) supervise(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-e.reloadCh:
			e.logger.Info("rebuilding session", slog.String("reason", reason))
			e.rebuild(ctx)
		}
	}
}

func (e *Engine) rebuild(ctx context.Context) {
	e.mu.Lock()
	old := e.session
	e.session = nil
	e.mu.Unlock()
	if old != nil {
		old.stop()
	}

	for {
		sess, err := e.buildSession(ctx)
		if err == nil {
			e.mu.Lock()
			e.session = sess
			e.reloads++
			e.mu.Unlock()
			return
		}
		if policy.IsAbortError(err) || ctx.Err() != nil {
			return
		}
		e.logger.Error("session rebuild failed, retrying", logging.Error(err))
		retry := time.Duration(e.cfg.Album.FetchRetryInterval) * time.Second
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Status is the inspection snapshot the daemon API serves.
type Status struct {
	Running     bool              `json:"running"`
	StartedAt   time.Time         `json:"started_at"`
	Album       string            `json:"album"`
	Reloads     int               `json:"reloads"`
	StoreCounts map[string]int    `json:"store_counts"`
	Wall        []wall.RowSnapshot `json:"wall,omitempty"`
	Transition  transition.Status `json:"transition"`
}

// Status returns a snapshot of the running session.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Running:   e.running,
		StartedAt: e.startedAt,
		Album:     e.album,
		Reloads:   e.reloads,
	}
	if e.session != nil {
		st.StoreCounts = map[string]int{
			string(photo.Portrait):  e.session.store.Count(photo.Portrait),
			string(photo.Landscape): e.session.store.Count(photo.Landscape),
			string(photo.Panorama):  e.session.store.Count(photo.Panorama),
		}
		st.Wall = e.session.wall.Snapshot()
		st.Transition = e.session.transition.Status()
	}
	return st
}

// WallSnapshot returns the current rows, or nil between sessions.
func (e *Engine) WallSnapshot() []wall.RowSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	return e.session.wall.Snapshot()
}

func (e *Engine) setAlbum(label string) {
	e.mu.Lock()
	e.album = label
	e.mu.Unlock()
}

// sampleMemory estimates available heap against the configured runtime
// memory limit. Without a limit there is no meaningful ceiling and prefetch
// proceeds, matching the graceful-degradation rule for missing telemetry.
func sampleMemory() *policy.MemoryInfo {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return nil
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	available := float64(limit-int64(ms.HeapAlloc)) / (1 << 20)
	if available < 0 {
		available = 0
	}
	return &policy.MemoryInfo{AvailableMB: available}
}

// session is one wired display run: every component below lives and dies
// with it.
type session struct {
	client     *album.Client
	store      *photo.Store
	wall       *wall.Wall
	loader     *loader.Loader
	chors      map[wall.RowID]*animation.Choreographer
	scheduler  *scheduler.Scheduler
	transition *transition.Manager
	watchdog   *watchdog.Watchdog

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *session) stop() {
	s.transition.Stop()
	s.scheduler.Stop()
	s.watchdog.Stop()
	s.cancel()
	s.wg.Wait()
	s.loader.Reset()
	s.wall.Discard()
	s.store.DrainAll()
}

// buildSession fetches the first album, paints the initial rows, and starts
// every background component.
func (e *Engine) buildSession(ctx context.Context) (*session, error) {
	cfg := e.cfg
	sessCtx, cancel := context.WithCancel(ctx)

	client := album.NewClient(cfg.Album.Endpoint, cfg.Layout.PanoramaMinAspect, e.logger)
	ld := loader.New(client, loader.Options{
		InitialBatchSize: cfg.Loader.InitialBatchSize,
		BatchSize:        cfg.Loader.BatchSize,
		LoadTimeout:      time.Duration(cfg.Loader.LoadTimeout) * time.Second,
		UpgradeDelay:     time.Duration(cfg.Loader.UpgradeBatchDelay) * time.Millisecond,
	}, e.logger)

	store := photo.NewStore(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d)))
	w := wall.New(store, nil, wall.Options{
		TotalColumns:                cfg.TotalColumns(),
		ViewportWidth:               float64(cfg.Viewport.Width),
		ViewportHeight:              float64(cfg.Viewport.Height),
		WideSlotProbability:         cfg.Layout.WideSlotProbability,
		StackedLandscapeProbability: cfg.Layout.StackedLandscapeProbability,
		PanoramaProbability:         cfg.Layout.PanoramaProbability,
		PanoramaReferenceAspect:     cfg.Layout.PanoramaReferenceAspect,
		PanSpeed:                    cfg.Layout.PanSpeed,
		StealProbability:            cfg.Layout.StealProbability,
		PatternAvoidRetries:         cfg.Layout.PatternAvoidRetries,
	}, e.logger)
	ld.OnLoadFailure(w.MarkLoadFailed)

	timings := animation.Timings{
		Shrink:          time.Duration(cfg.Animation.ShrinkDuration) * time.Millisecond,
		Reflow:          time.Duration(cfg.Animation.ReflowDuration) * time.Millisecond,
		Slide:           time.Duration(cfg.Animation.SlideDuration) * time.Millisecond,
		SlideDelay:      time.Duration(cfg.Animation.SlideDelay) * time.Millisecond,
		FillStagger:     time.Duration(cfg.Animation.FillStagger) * time.Millisecond,
		BounceOvershoot: cfg.Animation.BounceOvershoot,
		ReducedMotion:   cfg.Animation.ReducedMotion,
	}
	chors := map[wall.RowID]*animation.Choreographer{
		wall.Top:    animation.NewChoreographer(wall.Top, w, timings, ld, e.logger),
		wall.Bottom: animation.NewChoreographer(wall.Bottom, w, timings, ld, e.logger),
	}

	sched := scheduler.New(w, store, chors, nil, scheduler.Options{
		Interval:                time.Duration(cfg.Swap.Interval) * time.Second,
		MinWeightFloor:          time.Duration(cfg.Swap.MinWeightFloor) * time.Millisecond,
		RecoveryDefer:           time.Duration(cfg.Watchdog.RecoveryDefer) * time.Millisecond,
		PanoramaProbability:     cfg.Layout.PanoramaProbability,
		PanoramaReferenceAspect: cfg.Layout.PanoramaReferenceAspect,
		PanSpeed:                cfg.Layout.PanSpeed,
	}, e.logger)

	fade := time.Duration(cfg.Animation.FadeDuration) * time.Millisecond
	if cfg.Animation.ReducedMotion {
		fade = 0
	}
	trans := transition.New(client, ld, store, w, transition.Options{
		PhotosPerAlbum:       cfg.Album.PhotosPerAlbum,
		RefreshInterval:      time.Duration(cfg.Album.RefreshInterval) * time.Second,
		PrefetchLeadTime:     time.Duration(cfg.Album.PrefetchLeadTime) * time.Second,
		SwapInterval:         time.Duration(cfg.Swap.Interval) * time.Second,
		MinPrefetchedPhotos:  cfg.Album.MinPrefetchedPhotos,
		ForcedReloadInterval: cfg.Album.ForcedReloadInterval,
		MemoryThresholdMB:    float64(cfg.Album.MemoryThresholdMB),
		FetchRetryInterval:   time.Duration(cfg.Album.FetchRetryInterval) * time.Second,
		FadeDuration:         fade,
	}, transition.Hooks{
		Reload:       e.RequestReload,
		AlbumChanged: e.setAlbum,
		RestartSwaps: func() {
			sched.Stop()
			if err := sched.Start(sessCtx); err != nil {
				e.logger.Error("swap restart failed", logging.Error(err))
			}
		},
		KickUpgrades: func(ctx context.Context) {
			go func() {
				if err := ld.UpgradeLoaded(ctx); err != nil && !policy.IsAbortError(err) {
					e.logger.Warn("quality upgrade pass failed", logging.Error(err))
				}
			}()
		},
		MemoryInfo: sampleMemory,
	}, e.logger)

	dog := watchdog.New(w, sched, watchdog.Options{
		Interval:     time.Duration(cfg.Watchdog.Interval) * time.Second,
		StuckGrace:   time.Duration(cfg.Watchdog.StuckGrace) * time.Second,
		MaxAnimation: timings.MaxDuration(),
	}, e.logger)

	sess := &session{
		client:     client,
		store:      store,
		wall:       w,
		loader:     ld,
		chors:      chors,
		scheduler:  sched,
		transition: trans,
		watchdog:   dog,
		cancel:     cancel,
	}

	if err := e.paintFirstAlbum(sessCtx, sess); err != nil {
		cancel()
		return nil, err
	}

	if err := sched.Start(sessCtx); err != nil {
		sess.stop()
		return nil, err
	}
	if err := trans.Start(sessCtx); err != nil {
		sess.stop()
		return nil, err
	}
	if err := dog.Start(sessCtx); err != nil {
		sess.stop()
		return nil, err
	}
	return sess, nil
}

// paintFirstAlbum fetches the opening album, loads the initial batch, and
// builds both rows. The remainder of the album and the quality upgrades
// continue in the background.
func (e *Engine) paintFirstAlbum(ctx context.Context, sess *session) error {
	data, err := sess.client.FetchAlbum(ctx, e.cfg.Album.PhotosPerAlbum)
	if err != nil {
		return err
	}
	if !policy.ValidateAlbumData(data) {
		return errors.New("album endpoint returned no usable images")
	}

	initial, err := sess.loader.LoadInitial(ctx, data)
	if err != nil {
		return err
	}
	if len(initial) == 0 {
		return errors.New("no photos loaded from initial batch")
	}
	sess.store.AddAll(initial)

	now := time.Now()
	for _, row := range []wall.RowID{wall.Top, wall.Bottom} {
		if err := sess.wall.BuildRow(row, now); err != nil {
			return err
		}
	}
	fade := time.Duration(e.cfg.Animation.FadeDuration) * time.Millisecond
	if e.cfg.Animation.ReducedMotion {
		fade = 0
	}
	animation.FadeIn(ctx, sess.wall, fade)
	e.setAlbum(transition.Label(data.Name))
	e.logger.Info("first paint complete",
		logging.String(logging.FieldAlbum, data.Name),
		logging.Int("photos", len(initial)),
	)

	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		rest, err := sess.loader.LoadRemainder(ctx, data)
		if err != nil {
			if !policy.IsAbortError(err) {
				e.logger.Warn("background album load failed", logging.Error(err))
			}
			return
		}
		sess.store.AddAll(rest)
		if err := sess.loader.UpgradeLoaded(ctx); err != nil && !policy.IsAbortError(err) {
			e.logger.Warn("quality upgrade pass failed", logging.Error(err))
		}
	}()
	return nil
}
