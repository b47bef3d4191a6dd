// Package album is the client side of the album collaborator: wire types for
// the album-listing endpoint, the quality-tiered thumbnail URL scheme, and
// single-image loading with original-path fallback.
package album

import (
	"fmt"
	"net/url"
	"strings"

	"photowall/internal/photo"
)

// ImageRef is one entry of an album listing. File is the stable original
// path; every quality variant URL is derived from it.
type ImageRef struct {
	File   string `json:"file"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Data is the album-listing payload: {count, images}. Count always equals
// len(Images); an empty album is {count:0, images:[]}.
type Data struct {
	Name   string     `json:"name,omitempty"`
	Count  int        `json:"count"`
	Images []ImageRef `json:"images"`
}

// ThumbPath returns the server path of a file at the given quality tier.
// M and XL variants live under /thumbs/{tier}/, originals under /photos/.
func ThumbPath(file string, quality photo.Quality) string {
	clean := strings.TrimPrefix(file, "/")
	if quality == photo.QualityOriginal {
		return "/photos/" + clean
	}
	return "/thumbs/" + quality.String() + "/" + clean
}

// ThumbURL joins a base endpoint with the quality-tiered path for a file.
func ThumbURL(base, file string, quality photo.Quality) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + ThumbPath(file, quality)
	return u.String(), nil
}
