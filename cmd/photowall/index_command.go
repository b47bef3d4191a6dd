package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"photowall/internal/library"
	"photowall/internal/logging"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rescan the photo library into the album index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

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
			if err := scanner.Rescan(cmd.Context()); err != nil {
				return fmt.Errorf("index library: %w", err)
			}

			albums, err := idx.Albums(cmd.Context())
			if err != nil {
				return fmt.Errorf("list albums: %w", err)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(albums))
			total := 0
			for _, album := range albums {
				rows = append(rows, []string{album.Name, fmt.Sprintf("%d", album.PhotoCount)})
				total += album.PhotoCount
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Album", "Photos"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Indexed %d photos across %d albums\n", total, len(albums))
			return nil
		},
	}
}
