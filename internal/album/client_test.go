package album

import (
	"context"
	"errors"
	"testing"

	"photowall/internal/logging"
	"photowall/internal/photo"
	"photowall/internal/testsupport"
)

func TestThumbPath(t *testing.T) {
	cases := []struct {
		file    string
		quality photo.Quality
		want    string
	}{
		{"trip/a.jpg", photo.QualityM, "/thumbs/M/trip/a.jpg"},
		{"trip/a.jpg", photo.QualityXL, "/thumbs/XL/trip/a.jpg"},
		{"trip/a.jpg", photo.QualityOriginal, "/photos/trip/a.jpg"},
		{"/lead/slash.png", photo.QualityM, "/thumbs/M/lead/slash.png"},
	}
	for _, tc := range cases {
		if got := ThumbPath(tc.file, tc.quality); got != tc.want {
			t.Fatalf("ThumbPath(%q, %v) = %q, want %q", tc.file, tc.quality, got, tc.want)
		}
	}
}

func TestFetchAlbum(t *testing.T) {
	server := testsupport.NewAlbumServer(t, []testsupport.AlbumFixture{
		{File: "a.jpg", Width: 1600, Height: 1200},
		{File: "b.jpg", Width: 1200, Height: 1600},
	}, nil)

	client := NewClient(server.URL, 2.8, logging.NewNop())
	data, err := client.FetchAlbum(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch album: %v", err)
	}
	if data.Count != 2 || len(data.Images) != 2 {
		t.Fatalf("unexpected album payload %+v", data)
	}
	if data.Count != len(data.Images) {
		t.Fatalf("count %d must equal images length %d", data.Count, len(data.Images))
	}
}

func TestLoadImage_DecodesDimensions(t *testing.T) {
	server := testsupport.NewAlbumServer(t, []testsupport.AlbumFixture{
		{File: "wide.png", Width: 300, Height: 100},
	}, nil)

	client := NewClient(server.URL, 2.8, logging.NewNop())
	p, err := client.LoadImage(context.Background(), ImageRef{File: "wide.png"}, photo.QualityM)
	if err != nil {
		t.Fatalf("load image: %v", err)
	}
	if p.Width != 300 || p.Height != 100 {
		t.Fatalf("unexpected dimensions %dx%d", p.Width, p.Height)
	}
	if p.Orientation != photo.Panorama {
		t.Fatalf("3:1 image should classify as panorama, got %v", p.Orientation)
	}
	if p.Quality != photo.QualityM {
		t.Fatalf("unexpected quality %v", p.Quality)
	}
}

func TestLoadImage_FallsBackToOriginal(t *testing.T) {
	server := testsupport.NewAlbumServer(t, []testsupport.AlbumFixture{
		{File: "a.png", Width: 200, Height: 100},
	}, map[string]bool{"/thumbs/M/a.png": true})

	client := NewClient(server.URL, 2.8, logging.NewNop())
	p, err := client.LoadImage(context.Background(), ImageRef{File: "a.png"}, photo.QualityM)
	if err != nil {
		t.Fatalf("expected original fallback to succeed: %v", err)
	}
	if p.Quality != photo.QualityOriginal {
		t.Fatalf("fallback photo should carry original quality, got %v", p.Quality)
	}
}

func TestLoadImage_MissingEverywhereFails(t *testing.T) {
	server := testsupport.NewAlbumServer(t, nil, nil)
	client := NewClient(server.URL, 2.8, logging.NewNop())
	if _, err := client.LoadImage(context.Background(), ImageRef{File: "ghost.png"}, photo.QualityM); err == nil {
		t.Fatal("expected error for missing image")
	}
}

func TestLoadImage_CancellationSurfacesAsContextError(t *testing.T) {
	server := testsupport.NewAlbumServer(t, []testsupport.AlbumFixture{
		{File: "a.png", Width: 200, Height: 100},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewClient(server.URL, 2.8, logging.NewNop())
	_, err := client.LoadImage(ctx, ImageRef{File: "a.png"}, photo.QualityM)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
