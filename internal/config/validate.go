package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAlbum(); err != nil {
		return err
	}
	if err := c.validateViewport(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAlbum() error {
	if c.Album.PhotosPerAlbum <= 0 {
		return errors.New("album.photos_per_album must be positive")
	}
	if c.Album.RefreshInterval <= 0 {
		return errors.New("album.refresh_interval must be positive")
	}
	if c.Album.PrefetchLeadTime < 0 {
		return errors.New("album.prefetch_lead_time must not be negative")
	}
	if c.Album.MinPrefetchedPhotos < 0 {
		return errors.New("album.min_prefetched_photos must not be negative")
	}
	if c.Album.ForcedReloadInterval <= 0 {
		return errors.New("album.forced_reload_interval must be positive")
	}
	return nil
}

func (c *Config) validateViewport() error {
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return errors.New("viewport.width and viewport.height must be positive")
	}
	return nil
}

func (c *Config) validateLayout() error {
	probabilities := map[string]float64{
		"layout.wide_slot_probability":         c.Layout.WideSlotProbability,
		"layout.stacked_landscape_probability": c.Layout.StackedLandscapeProbability,
		"layout.panorama_probability":          c.Layout.PanoramaProbability,
		"layout.steal_probability":             c.Layout.StealProbability,
	}
	for name, p := range probabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.Layout.PanoramaMinAspect <= 1 {
		return errors.New("layout.panorama_min_aspect must exceed 1")
	}
	if c.Layout.PanoramaReferenceAspect <= 0 {
		return errors.New("layout.panorama_reference_aspect must be positive")
	}
	if c.Layout.PanSpeed <= 0 {
		return errors.New("layout.pan_speed must be positive")
	}
	return nil
}

func (c *Config) validateTiming() error {
	if c.Swap.Interval <= 0 {
		return errors.New("swap.interval must be positive")
	}
	if c.Swap.Interval >= c.Album.RefreshInterval {
		return errors.New("swap.interval must be shorter than album.refresh_interval")
	}
	if c.Animation.ShrinkDuration < 0 || c.Animation.ReflowDuration < 0 || c.Animation.SlideDuration < 0 {
		return errors.New("animation durations must not be negative")
	}
	if c.Loader.LoadTimeout <= 0 {
		return errors.New("loader.load_timeout must be positive")
	}
	if c.Watchdog.Interval <= 0 {
		return errors.New("watchdog.interval must be positive")
	}
	return nil
}
