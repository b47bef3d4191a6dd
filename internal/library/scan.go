package library

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"photowall/internal/logging"
)

// Scanner walks a library root and rebuilds the index. Albums are the
// first-level directories; anything nested deeper stays part of its album.
type Scanner struct {
	index      *Index
	root       string
	extensions map[string]bool
	logger     *slog.Logger
}

// NewScanner builds a scanner for the given root. Extensions are matched
// case-insensitively, without the leading dot.
func NewScanner(index *Index, root string, extensions []string, logger *slog.Logger) *Scanner {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &Scanner{
		index:      index,
		root:       root,
		extensions: exts,
		logger:     logging.NewComponentLogger(logger, "library-scan"),
	}
}

// Rescan walks the root and replaces the catalog. Unreadable or undecodable
// files are logged and skipped; the scan proceeds with what it can probe.
func (s *Scanner) Rescan(ctx context.Context) error {
	albums := map[string][]PhotoInfo{}
	exif := newEXIFProber(s.logger)
	defer exif.close()

	err := godirwalk.Walk(s.root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			base := filepath.Base(path)
			if len(base) > 0 && base[0] == '.' {
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				return nil
			}
			if !s.wantsFile(path) {
				return nil
			}

			rel, err := filepath.Rel(s.root, path)
			if err != nil {
				return err
			}
			albumName := albumOf(rel)
			if albumName == "" {
				// Top-level loose files have no album.
				return nil
			}

			width, height, err := probeDimensions(path)
			if err != nil {
				width, height, err = exif.dimensions(path)
			}
			if err != nil {
				s.logger.Warn("skipping unreadable image",
					logging.String(logging.FieldPhoto, rel),
					logging.Error(err),
				)
				return nil
			}
			albums[albumName] = append(albums[albumName], PhotoInfo{
				File:   filepath.ToSlash(rel),
				Width:  width,
				Height: height,
			})
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return fmt.Errorf("walk library: %w", err)
	}

	if err := s.index.Replace(ctx, albums); err != nil {
		return err
	}
	total := 0
	for _, photos := range albums {
		total += len(photos)
	}
	s.logger.Info("library indexed",
		logging.Int("albums", len(albums)),
		logging.Int("photos", total),
	)
	return nil
}

func (s *Scanner) wantsFile(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if len(s.extensions) == 0 {
		return ext == "jpg" || ext == "jpeg" || ext == "png" || ext == "gif"
	}
	return s.extensions[ext]
}

// albumOf returns the first path element of a relative file path, or empty
// for files directly under the root.
func albumOf(rel string) string {
	rel = filepath.ToSlash(rel)
	if idx := strings.IndexByte(rel, '/'); idx > 0 {
		return rel[:idx]
	}
	return ""
}

func probeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
