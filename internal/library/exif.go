package library

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/barasher/go-exiftool"
)

// exifProber reads image dimensions through exiftool for formats the
// stdlib decoders cannot probe. Nil when the exiftool binary is not
// installed; callers treat that as a plain probe failure.
type exifProber struct {
	et *exiftool.Exiftool
}

func newEXIFProber(logger *slog.Logger) *exifProber {
	et, err := exiftool.NewExiftool()
	if err != nil {
		logger.Debug("exiftool unavailable, stdlib probing only", slog.Any("error", err))
		return nil
	}
	return &exifProber{et: et}
}

func (p *exifProber) close() {
	if p != nil && p.et != nil {
		_ = p.et.Close()
	}
}

func (p *exifProber) dimensions(path string) (int, int, error) {
	if p == nil {
		return 0, 0, errors.New("exiftool unavailable")
	}
	metas := p.et.ExtractMetadata(path)
	if len(metas) == 0 {
		return 0, 0, fmt.Errorf("no exif metadata for %s", path)
	}
	meta := metas[0]
	if meta.Err != nil {
		return 0, 0, fmt.Errorf("extract metadata: %w", meta.Err)
	}
	width, err := meta.GetInt("ImageWidth")
	if err != nil {
		return 0, 0, fmt.Errorf("read ImageWidth: %w", err)
	}
	height, err := meta.GetInt("ImageHeight")
	if err != nil {
		return 0, 0, fmt.Errorf("read ImageHeight: %w", err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("exif reports %dx%d for %s", width, height, path)
	}
	return int(width), int(height), nil
}
