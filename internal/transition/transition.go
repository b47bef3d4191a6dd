package transition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"photowall/internal/album"
	"photowall/internal/animation"
	"photowall/internal/loader"
	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/policy"
	"photowall/internal/wall"
)

// Options tune the album cycle.
type Options struct {
	// PhotosPerAlbum is the count requested from the collaborator.
	PhotosPerAlbum int
	// RefreshInterval is the time between album boundaries.
	RefreshInterval time.Duration
	// PrefetchLeadTime is how long before a boundary prefetch begins. It is
	// clamped so a misconfigured lead never fires instantly or past the
	// boundary.
	PrefetchLeadTime time.Duration
	// SwapInterval bounds the lead-time clamp.
	SwapInterval time.Duration
	// MinPrefetchedPhotos is the floor below which the boundary falls back
	// to a full reload.
	MinPrefetchedPhotos int
	// ForcedReloadInterval forces a reload every Nth transition.
	ForcedReloadInterval int
	// MemoryThresholdMB is the available-memory floor for starting prefetch.
	MemoryThresholdMB float64
	// FetchRetryInterval paces album fetch retries during prefetch.
	FetchRetryInterval time.Duration
	// FadeDuration is the cross-fade length framing a seamless swap: the old
	// rows fade out before teardown and the rebuilt rows fade back in. Zero
	// makes both cuts instant.
	FadeDuration time.Duration
}

// Hooks are the session-level actions a transition needs from its owner.
type Hooks struct {
	// Reload tears the session down and builds a fresh one.
	Reload func(reason string)
	// AlbumChanged reports the new display label after a seamless swap.
	AlbumChanged func(label string)
	// RestartSwaps resets the swap cadence.
	RestartSwaps func()
	// KickUpgrades launches the background quality pass for the new album.
	KickUpgrades func(ctx context.Context)
	// MemoryInfo samples available memory. Nil hook or nil sample means
	// telemetry is unavailable and prefetch proceeds.
	MemoryInfo func() *policy.MemoryInfo
}

type prefetchState struct {
	token    uuid.UUID
	cancel   context.CancelFunc
	started  bool
	complete bool
	data     *album.Data
	photos   []*photo.Photo
}

// Manager cycles the display through albums. Ahead of each boundary it
// prefetches the next album in the background; at the boundary it either
// swaps seamlessly to the prefetched photos or falls back to a full reload
// when the prefetch came up short. Every Nth transition reloads regardless.
type Manager struct {
	client *album.Client
	loader *loader.Loader
	store  *photo.Store
	wall   *wall.Wall
	opts   Options
	hooks  Hooks
	logger *slog.Logger

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	prefetch    prefetchState
	transitions int
	albumLabel  string
}

// New constructs a transition manager.
func New(client *album.Client, ld *loader.Loader, store *photo.Store, w *wall.Wall, opts Options, hooks Hooks, logger *slog.Logger) *Manager {
	return &Manager{
		client: client,
		loader: ld,
		store:  store,
		wall:   w,
		opts:   opts,
		hooks:  hooks,
		logger: logging.NewComponentLogger(logger, "transition"),
	}
}

// Start begins the album cycle loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("transition manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates the cycle loop and any in-flight prefetch.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	if m.prefetch.cancel != nil {
		m.prefetch.cancel()
	}
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	lead := policy.ClampPrefetchLeadTime(m.opts.PrefetchLeadTime, m.opts.RefreshInterval, m.opts.SwapInterval)
	for {
		if err := sleepCtx(ctx, m.opts.RefreshInterval-lead); err != nil {
			return
		}
		m.StartPrefetch(ctx)
		if err := sleepCtx(ctx, lead); err != nil {
			return
		}
		m.TransitionNow(ctx)
	}
}

// StartPrefetch begins loading the next album in the background. A running
// prefetch is cancelled first; two prefetches never race to populate the
// pending set. Low memory skips the prefetch entirely, which the boundary
// later resolves as a reload.
func (m *Manager) StartPrefetch(ctx context.Context) {
	m.mu.Lock()
	if m.prefetch.cancel != nil {
		m.prefetch.cancel()
	}
	if info := m.sampleMemory(); !policy.HasEnoughMemoryForPrefetch(info, m.opts.MemoryThresholdMB) {
		m.prefetch = prefetchState{}
		m.mu.Unlock()
		m.logger.Warn("low memory, skipping album prefetch")
		return
	}

	prefetchCtx, cancel := context.WithCancel(ctx)
	token := uuid.New()
	m.prefetch = prefetchState{token: token, cancel: cancel, started: true}
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("album prefetch started", logging.String("token", token.String()))
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.runPrefetch(prefetchCtx, token)
	}()
}

func (m *Manager) runPrefetch(ctx context.Context, token uuid.UUID) {
	data, err := m.fetchWithRetry(ctx)
	if err != nil {
		if !policy.IsAbortError(err) {
			m.logger.Warn("album prefetch failed", logging.Error(err))
		}
		return
	}
	if !policy.ValidateAlbumData(data) {
		m.logger.Warn("album prefetch returned unusable data",
			logging.String(logging.FieldAlbum, data.Name))
		return
	}

	photos, err := m.loader.LoadRefs(ctx, data.Images, photo.QualityM)
	if err != nil {
		if !policy.IsAbortError(err) {
			m.logger.Warn("album prefetch load failed", logging.Error(err))
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefetch.token != token {
		// Superseded while loading; the newer prefetch owns the state.
		return
	}
	m.prefetch.data = data
	m.prefetch.photos = photos
	m.prefetch.complete = true
	m.logger.Info("album prefetch complete",
		logging.String(logging.FieldAlbum, data.Name),
		logging.Int("photos", len(photos)),
	)
}

// fetchWithRetry keeps requesting the album until it succeeds or the
// prefetch is cancelled. Transient failures are logged, never surfaced.
func (m *Manager) fetchWithRetry(ctx context.Context) (*album.Data, error) {
	for {
		data, err := m.client.FetchAlbum(ctx, m.opts.PhotosPerAlbum)
		if err == nil {
			return data, nil
		}
		if policy.IsAbortError(err) {
			return nil, err
		}
		m.logger.Warn("album fetch failed, retrying", logging.Error(err))
		if sleepErr := sleepCtx(ctx, m.opts.FetchRetryInterval); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

// TransitionNow resolves an album boundary: forced reload on schedule,
// fallback reload when the prefetch came up short, seamless swap otherwise.
func (m *Manager) TransitionNow(ctx context.Context) {
	m.mu.Lock()
	count := m.transitions
	state := m.prefetch
	m.mu.Unlock()

	if policy.ShouldForcedReload(count, m.opts.ForcedReloadInterval) {
		m.reload("forced reload interval reached")
		return
	}
	if decision := policy.ShouldFallbackToReload(state.complete, len(state.photos), m.opts.MinPrefetchedPhotos); decision.ShouldReload {
		m.reload(decision.Reason)
		return
	}
	m.swapSeamlessly(ctx, state)
}

func (m *Manager) reload(reason string) {
	m.mu.Lock()
	if m.prefetch.cancel != nil {
		m.prefetch.cancel()
	}
	m.prefetch = prefetchState{}
	m.transitions++
	m.mu.Unlock()

	m.logger.Info("falling back to full reload", logging.String("reason", reason))
	if m.hooks.Reload != nil {
		m.hooks.Reload(reason)
	}
}

// swapSeamlessly replaces the working set without a reload: the old rows
// fade out, both rows and the pools are dropped for collection, the
// prefetched photos redistribute into the store by orientation, and both
// rows rebuild synchronously before fading back in.
func (m *Manager) swapSeamlessly(ctx context.Context, state prefetchState) {
	label := Label(state.data.Name)
	m.logger.Info("seamless album transition",
		logging.String(logging.FieldAlbum, label),
		logging.Int("photos", len(state.photos)),
	)

	animation.FadeOut(ctx, m.wall, m.opts.FadeDuration)
	m.store.DrainAll()
	m.wall.Discard()
	m.loader.Reset()

	m.store.AddAll(state.photos)
	now := time.Now()
	for _, row := range []wall.RowID{wall.Top, wall.Bottom} {
		if err := m.wall.BuildRow(row, now); err != nil {
			m.logger.Error("row rebuild failed after transition",
				logging.String(logging.FieldRow, string(row)),
				logging.Error(err),
			)
			m.reload("row rebuild failed")
			return
		}
	}
	animation.FadeIn(ctx, m.wall, m.opts.FadeDuration)
	m.loader.Track(state.photos)

	m.mu.Lock()
	m.prefetch = prefetchState{}
	m.transitions++
	m.albumLabel = label
	m.mu.Unlock()

	if m.hooks.AlbumChanged != nil {
		m.hooks.AlbumChanged(label)
	}
	if m.hooks.RestartSwaps != nil {
		m.hooks.RestartSwaps()
	}
	if m.hooks.KickUpgrades != nil {
		m.hooks.KickUpgrades(ctx)
	}
}

func (m *Manager) sampleMemory() *policy.MemoryInfo {
	if m.hooks.MemoryInfo == nil {
		return nil
	}
	return m.hooks.MemoryInfo()
}

// Status describes the transition cycle for inspection surfaces.
type Status struct {
	Album            string `json:"album"`
	Transitions      int    `json:"transitions"`
	PrefetchStarted  bool   `json:"prefetch_started"`
	PrefetchComplete bool   `json:"prefetch_complete"`
	PrefetchedPhotos int    `json:"prefetched_photos"`
}

// Status returns a snapshot of the cycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Album:            m.albumLabel,
		Transitions:      m.transitions,
		PrefetchStarted:  m.prefetch.started,
		PrefetchComplete: m.prefetch.complete,
		PrefetchedPhotos: len(m.prefetch.photos),
	}
}

// Label prettifies a raw album directory name for display: separators become
// spaces and words are title-cased.
func Label(name string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return name
	}
	return cases.Title(language.Und, cases.NoLower).String(cleaned)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
