package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"photowall/internal/config"
	"photowall/internal/engine"
	"photowall/internal/library"
	"photowall/internal/logging"
	"photowall/internal/server"
)

// Daemon runs the display engine, the embedded album collaborator, and the
// inspection API, enforcing single-instance execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine

	index       *library.Index
	scanner     *library.Scanner
	albumServer *server.Server
	api         *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "photowalld.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		engine:   engine.New(cfg, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// servesAlbum reports whether the collaborator endpoint is this daemon's to
// run. A custom remote endpoint disables the embedded server.
func (d *Daemon) servesAlbum() bool {
	bind := d.cfg.Paths.AlbumBind
	return bind != "" && d.cfg.Album.Endpoint == "http://"+bind
}

// Start acquires the lock and brings every component up: library index and
// album server first so the engine's opening fetch has something to talk to.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another photowall daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	fail := func(err error) error {
		d.teardown()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	if d.servesAlbum() {
		if err := d.startAlbumServer(runCtx); err != nil {
			return fail(err)
		}
	}
	if err := d.engine.Start(runCtx); err != nil {
		return fail(fmt.Errorf("start engine: %w", err))
	}
	d.api = newAPIServer(d.cfg.Paths.APIBind, d, d.logger)
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			return fail(fmt.Errorf("start api: %w", err))
		}
	}

	d.running.Store(true)
	d.logger.Info("photowall daemon started", slog.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) startAlbumServer(ctx context.Context) error {
	idx, err := library.Open(filepath.Join(d.cfg.Paths.CacheDir, "library.db"))
	if err != nil {
		return fmt.Errorf("open library index: %w", err)
	}
	d.index = idx
	d.scanner = library.NewScanner(idx, d.cfg.Paths.LibraryDir, d.cfg.Library.Extensions, d.logger)
	if err := d.scanner.Rescan(ctx); err != nil {
		return fmt.Errorf("index library: %w", err)
	}

	d.albumServer = server.New(idx, d.cfg.Paths.LibraryDir, d.cfg.Paths.CacheDir, d.cfg.Paths.AlbumBind, d.logger)
	if err := d.albumServer.Start(ctx); err != nil {
		return err
	}

	if d.cfg.Library.Watch {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.scanner.Watch(ctx, 2*time.Second); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Warn("library watch ended", logging.Error(err))
			}
		}()
	}
	return nil
}

// Stop stops every component and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.teardown()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("photowall daemon stopped")
}

func (d *Daemon) teardown() {
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.engine.Stop()
	if d.albumServer != nil {
		d.albumServer.Stop()
		d.albumServer = nil
	}
	d.wg.Wait()
	if d.index != nil {
		_ = d.index.Close()
		d.index = nil
	}
	d.scanner = nil
}

// Close releases all daemon resources.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status describes the daemon for the inspection API and CLI.
type Status struct {
	Running      bool          `json:"running"`
	LockFilePath string        `json:"lock_file_path"`
	AlbumServer  string        `json:"album_server,omitempty"`
	Engine       engine.Status `json:"engine"`
}

// Status reports current daemon state.
func (d *Daemon) Status() Status {
	st := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		Engine:       d.engine.Status(),
	}
	if d.albumServer != nil {
		st.AlbumServer = d.albumServer.Addr()
	}
	return st
}
