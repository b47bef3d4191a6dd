package album

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"photowall/internal/logging"
	"photowall/internal/photo"
)

// Client talks to the album collaborator endpoint.
type Client struct {
	endpoint          string
	httpClient        *http.Client
	logger            *slog.Logger
	panoramaMinAspect float64
}

// NewClient constructs a collaborator client. The endpoint is the base URL of
// the album server, without a trailing slash.
func NewClient(endpoint string, panoramaMinAspect float64, logger *slog.Logger) *Client {
	return &Client{
		endpoint:          endpoint,
		httpClient:        &http.Client{},
		logger:            logging.NewComponentLogger(logger, "album-client"),
		panoramaMinAspect: panoramaMinAspect,
	}
}

// FetchAlbum requests a random album of the given photo count. Cancellation
// surfaces as a context error; callers distinguish it via policy.IsAbortError.
func (c *Client) FetchAlbum(ctx context.Context, count int) (*Data, error) {
	url := fmt.Sprintf("%s/album/%d", c.endpoint, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build album request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("fetch album: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch album: unexpected status %d", resp.StatusCode)
	}

	var data Data
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode album: %w", err)
	}
	return &data, nil
}

// LoadImage fetches one image at the requested quality tier and probes its
// dimensions. A failure on the quality-tagged variant (missing variant,
// undecodable payload) falls back once to the unprocessed original before
// giving up. Load deadlines are the caller's concern via ctx.
func (c *Client) LoadImage(ctx context.Context, ref ImageRef, quality photo.Quality) (*photo.Photo, error) {
	p, err := c.loadVariant(ctx, ref.File, quality)
	if err == nil {
		return p, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if quality == photo.QualityOriginal {
		return nil, err
	}

	c.logger.Debug("variant load failed, trying original",
		logging.String(logging.FieldPhoto, ref.File),
		logging.String(logging.FieldQuality, quality.String()),
		logging.Error(err),
	)
	p, origErr := c.loadVariant(ctx, ref.File, photo.QualityOriginal)
	if origErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("load %s: %w", ref.File, err)
	}
	return p, nil
}

func (c *Client) loadVariant(ctx context.Context, file string, quality photo.Quality) (*photo.Photo, error) {
	url, err := ThumbURL(c.endpoint, file, quality)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: status %d", file, resp.StatusCode)
	}

	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", file, err)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return photo.New(file, cfg.Width, cfg.Height, quality, c.panoramaMinAspect), nil
}
