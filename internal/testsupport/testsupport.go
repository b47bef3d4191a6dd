// Package testsupport provides fixtures shared by photowall tests: synthetic
// image payloads and a canned album collaborator endpoint.
package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// PNGBytes renders a solid-color PNG of the given dimensions.
func PNGBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// AlbumFixture describes one image the fake collaborator serves.
type AlbumFixture struct {
	File   string
	Width  int
	Height int
}

// NewAlbumServer starts an httptest server speaking the collaborator
// protocol: GET /album/{count} returns the fixtures (trimmed to count) and
// quality-tagged thumb paths serve generated PNGs. Variants listed in
// missingVariants return 404 so fallback paths can be exercised.
func NewAlbumServer(t *testing.T, fixtures []AlbumFixture, missingVariants map[string]bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/album/", func(w http.ResponseWriter, r *http.Request) {
		countStr := strings.TrimPrefix(r.URL.Path, "/album/")
		count := 0
		if _, err := fmt.Sscanf(countStr, "%d", &count); err != nil {
			http.Error(w, "invalid count", http.StatusBadRequest)
			return
		}
		if count > len(fixtures) {
			count = len(fixtures)
		}
		images := make([]map[string]any, 0, count)
		for _, f := range fixtures[:count] {
			images = append(images, map[string]any{"file": f.File})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":   "fixture album",
			"count":  count,
			"images": images,
		})
	})

	serveImage := func(w http.ResponseWriter, r *http.Request, file string) {
		if missingVariants[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		for _, f := range fixtures {
			if f.File == file {
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(PNGBytes(t, f.Width, f.Height))
				return
			}
		}
		http.NotFound(w, r)
	}
	mux.HandleFunc("/thumbs/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/thumbs/")
		if _, file, ok := strings.Cut(rest, "/"); ok {
			serveImage(w, r, file)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/photos/", func(w http.ResponseWriter, r *http.Request) {
		serveImage(w, r, strings.TrimPrefix(r.URL.Path, "/photos/"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}
