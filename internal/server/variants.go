package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"photowall/internal/logging"
)

// variantOpts bounds a quality tier: images are scaled down so their longest
// side fits maxDim, never scaled up.
type variantOpts struct {
	maxDim  int
	quality int
}

var variants = map[string]variantOpts{
	"M":  {maxDim: 1024, quality: 85},
	"XL": {maxDim: 2048, quality: 90},
}

// handleVariant serves GET /thumbs/{tier}/{file}: a resized JPEG variant,
// generated on first request and cached under the cache directory. Unknown
// tiers and files 404 so the client falls back to the original.
func (s *Server) handleVariant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/thumbs/")
	tier, file, ok := strings.Cut(rest, "/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	opts, known := variants[tier]
	if !known {
		http.NotFound(w, r)
		return
	}
	rel, ok := s.safeRel(file)
	if !ok {
		http.NotFound(w, r)
		return
	}

	source := filepath.Join(s.root, rel)
	if _, err := os.Stat(source); err != nil {
		http.NotFound(w, r)
		return
	}

	cached := filepath.Join(s.cacheDir, "thumbs", tier, rel+".jpg")
	if stale, err := variantStale(source, cached); err == nil && !stale {
		http.ServeFile(w, r, cached)
		return
	}

	if err := s.renderVariant(source, cached, opts); err != nil {
		s.logger.Warn("variant render failed",
			logging.String(logging.FieldPhoto, rel),
			logging.String(logging.FieldQuality, tier),
			logging.Error(err),
		)
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, cached)
}

// variantStale reports whether the cached variant is missing or older than
// its source.
func variantStale(source, cached string) (bool, error) {
	src, err := os.Stat(source)
	if err != nil {
		return false, err
	}
	dst, err := os.Stat(cached)
	if err != nil {
		return true, nil
	}
	return src.ModTime().After(dst.ModTime()), nil
}

func (s *Server) renderVariant(source, cached string, opts variantOpts) error {
	img, err := imgio.Open(source)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return os.ErrInvalid
	}

	longest := width
	if height > longest {
		longest = height
	}
	if longest > opts.maxDim {
		scale := float64(opts.maxDim) / float64(longest)
		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
		img = transform.Resize(img, width, height, transform.Lanczos)
	}

	if err := os.MkdirAll(filepath.Dir(cached), 0o755); err != nil {
		return err
	}
	return imgio.Save(cached, img, imgio.JPEGEncoder(opts.quality))
}
