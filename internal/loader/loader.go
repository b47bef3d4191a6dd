package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"photowall/internal/album"
	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/policy"
)

// Options tune the staged loading behavior.
type Options struct {
	// InitialBatchSize is how many photos load before first paint.
	InitialBatchSize int
	// BatchSize bounds each background load and upgrade batch.
	BatchSize int
	// LoadTimeout caps a single image fetch. A timed-out load counts as a
	// failure, not a hang.
	LoadTimeout time.Duration
	// UpgradeDelay throttles consecutive upgrade batches.
	UpgradeDelay time.Duration
}

// Loader stages image loading in two tiers: a small low-quality batch that
// unblocks first paint, the remainder of the album in the background, and a
// throttled upgrade pass that promotes every loaded photo to the sharper
// tier. The Pause and Resume methods form the upgrade gate held by running
// choreographies; upgrade batches defer while the gate is held.
type Loader struct {
	client *album.Client
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	paused    int
	loaded    []*photo.Photo
	onFailure func(*photo.Photo)
}

// New builds a loader around an album client.
func New(client *album.Client, opts Options, logger *slog.Logger) *Loader {
	if opts.InitialBatchSize <= 0 {
		opts.InitialBatchSize = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &Loader{
		client: client,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "loader"),
	}
}

// OnLoadFailure registers a handler for photos whose upgrade load fails.
// The photo keeps its current tier either way; the handler lets the display
// surface flag it so the watchdog can recover the cell.
func (l *Loader) OnLoadFailure(fn func(*photo.Photo)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onFailure = fn
}

func (l *Loader) notifyFailure(p *photo.Photo) {
	l.mu.Lock()
	fn := l.onFailure
	l.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// Pause holds the upgrade gate. Calls nest; every Pause needs a matching
// Resume.
func (l *Loader) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused++
}

// Resume releases one hold on the upgrade gate.
func (l *Loader) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused > 0 {
		l.paused--
	}
}

// Paused reports whether any choreography currently holds the gate.
func (l *Loader) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused > 0
}

// LoadInitial loads the first batch at the low tier. Returns the photos that
// loaded; individual failures are dropped from the result.
func (l *Loader) LoadInitial(ctx context.Context, data *album.Data) ([]*photo.Photo, error) {
	refs := data.Images
	if len(refs) > l.opts.InitialBatchSize {
		refs = refs[:l.opts.InitialBatchSize]
	}
	photos, err := l.LoadRefs(ctx, refs, photo.QualityM)
	l.Track(photos)
	return photos, err
}

// LoadRemainder loads everything past the initial batch at the low tier.
func (l *Loader) LoadRemainder(ctx context.Context, data *album.Data) ([]*photo.Photo, error) {
	if len(data.Images) <= l.opts.InitialBatchSize {
		return nil, nil
	}
	photos, err := l.LoadRefs(ctx, data.Images[l.opts.InitialBatchSize:], photo.QualityM)
	l.Track(photos)
	return photos, err
}

// LoadRefs loads a set of references at the given tier. Failed entries are
// dropped and the rest proceed; only caller cancellation aborts the batch,
// returning whatever loaded so far alongside the context error. Loaded
// photos are not tracked for upgrades; see Track.
func (l *Loader) LoadRefs(ctx context.Context, refs []album.ImageRef, quality photo.Quality) ([]*photo.Photo, error) {
	photos := make([]*photo.Photo, 0, len(refs))
	for _, ref := range refs {
		p, err := l.loadOne(ctx, ref, quality)
		if err != nil {
			if policy.IsAbortError(err) && ctx.Err() != nil {
				return photos, ctx.Err()
			}
			l.logger.Warn("image load failed",
				logging.String(logging.FieldPhoto, ref.File),
				logging.String(logging.FieldQuality, quality.String()),
				logging.Error(err),
			)
			continue
		}
		photos = append(photos, p)
	}
	return photos, nil
}

func (l *Loader) loadOne(ctx context.Context, ref album.ImageRef, quality photo.Quality) (*photo.Photo, error) {
	loadCtx := ctx
	if l.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, l.opts.LoadTimeout)
		defer cancel()
	}
	return l.client.LoadImage(loadCtx, ref, quality)
}

// Track registers photos for the upgrade pass. The prefetch path loads
// without tracking and registers only the photos a transition keeps.
func (l *Loader) Track(photos []*photo.Photo) {
	if len(photos) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = append(l.loaded, photos...)
}

// Reset drops all tracked photos. Called when a session tears down.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = nil
}

// UpgradeLoaded promotes every tracked photo to the XL tier, batch by batch
// with the throttle delay between batches. Batches defer while the upgrade
// gate is held. Already-sharp photos are skipped. Returns early only on
// cancellation.
func (l *Loader) UpgradeLoaded(ctx context.Context) error {
	pending := l.snapshotLoaded()
	for start := 0; start < len(pending); start += l.opts.BatchSize {
		if err := l.waitUnpaused(ctx); err != nil {
			return err
		}
		end := start + l.opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		for _, p := range pending[start:end] {
			if err := l.upgradeOne(ctx, p); err != nil {
				return err
			}
		}
		if end < len(pending) && l.opts.UpgradeDelay > 0 {
			if err := sleepCtx(ctx, l.opts.UpgradeDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) upgradeOne(ctx context.Context, p *photo.Photo) error {
	if p.Quality >= photo.QualityXL {
		return nil
	}
	ref := album.ImageRef{File: p.FilePath, Width: p.Width, Height: p.Height}
	sharp, err := l.loadOne(ctx, ref, photo.QualityXL)
	if err != nil {
		if policy.IsAbortError(err) && ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Debug("upgrade failed, keeping current tier",
			logging.String(logging.FieldPhoto, p.FilePath),
			logging.Error(err),
		)
		l.notifyFailure(p)
		return nil
	}
	p.Promote(sharp.Quality, sharp.Width, sharp.Height)
	return nil
}

func (l *Loader) snapshotLoaded() []*photo.Photo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*photo.Photo, len(l.loaded))
	copy(out, l.loaded)
	return out
}

// waitUnpaused blocks in throttle-delay steps until the gate is released.
func (l *Loader) waitUnpaused(ctx context.Context) error {
	for l.Paused() {
		delay := l.opts.UpgradeDelay
		if delay <= 0 {
			delay = 10 * time.Millisecond
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
