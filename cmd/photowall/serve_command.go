package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"photowall/internal/library"
	"photowall/internal/logging"
	"photowall/internal/server"
)

// newServeCommand runs the album server by itself, for pointing a slideshow
// on another machine at this library.
func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the photo library without running the slideshow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Paths.AlbumBind
			}
			if bind == "" {
				return fmt.Errorf("no album_bind configured and no --bind given")
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			idx, err := library.Open(filepath.Join(cfg.Paths.CacheDir, "library.db"))
			if err != nil {
				return fmt.Errorf("open library index: %w", err)
			}
			defer idx.Close()

			scanner := library.NewScanner(idx, cfg.Paths.LibraryDir, cfg.Library.Extensions, logger)
			if err := scanner.Rescan(signalCtx); err != nil {
				return fmt.Errorf("index library: %w", err)
			}

			srv := server.New(idx, cfg.Paths.LibraryDir, cfg.Paths.CacheDir, bind, logger)
			if err := srv.Start(signalCtx); err != nil {
				return err
			}
			defer srv.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", cfg.Paths.LibraryDir, srv.Addr())

			if watch || cfg.Library.Watch {
				go func() {
					if err := scanner.Watch(signalCtx, 2*time.Second); err != nil {
						logger.Warn("library watch ended", logging.Error(err))
					}
				}()
			}

			<-signalCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to album_bind)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rescan when library files change")
	return cmd
}
