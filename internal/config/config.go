package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir" env:"PHOTOWALL_LIBRARY_DIR"`
	CacheDir   string `toml:"cache_dir" env:"PHOTOWALL_CACHE_DIR"`
	LogDir     string `toml:"log_dir" env:"PHOTOWALL_LOG_DIR"`
	APIBind    string `toml:"api_bind" env:"PHOTOWALL_API_BIND"`
	AlbumBind  string `toml:"album_bind" env:"PHOTOWALL_ALBUM_BIND"`
}

// Album contains configuration for album fetching and transitions.
type Album struct {
	Endpoint             string `toml:"endpoint" env:"PHOTOWALL_ALBUM_ENDPOINT"`
	PhotosPerAlbum       int    `toml:"photos_per_album"`
	RefreshInterval      int    `toml:"refresh_interval"`
	PrefetchLeadTime     int    `toml:"prefetch_lead_time"`
	MinPrefetchedPhotos  int    `toml:"min_prefetched_photos"`
	ForcedReloadInterval int    `toml:"forced_reload_interval"`
	MemoryThresholdMB    int    `toml:"memory_threshold_mb"`
	FetchRetryInterval   int    `toml:"fetch_retry_interval"`
}

// Viewport contains the display geometry the wall is laid out against.
type Viewport struct {
	Width        int `toml:"width"`
	Height       int `toml:"height"`
	WideMinWidth int `toml:"wide_min_width"`
}

// Layout contains slot pattern and panorama tunables.
type Layout struct {
	WideSlotProbability         float64 `toml:"wide_slot_probability"`
	StackedLandscapeProbability float64 `toml:"stacked_landscape_probability"`
	PanoramaProbability         float64 `toml:"panorama_probability"`
	PanoramaMinAspect           float64 `toml:"panorama_min_aspect"`
	PanoramaReferenceAspect     float64 `toml:"panorama_reference_aspect"`
	PanSpeed                    float64 `toml:"pan_speed"`
	StealProbability            float64 `toml:"steal_probability"`
	PatternAvoidRetries         int     `toml:"pattern_avoid_retries"`
}

// Swap contains the periodic single-photo replacement settings.
type Swap struct {
	Interval       int `toml:"interval"`
	MinWeightFloor int `toml:"min_weight_floor"`
}

// Animation contains choreography durations in milliseconds.
type Animation struct {
	ShrinkDuration  int     `toml:"shrink_duration"`
	ReflowDuration  int     `toml:"reflow_duration"`
	SlideDuration   int     `toml:"slide_duration"`
	SlideDelay      int     `toml:"slide_delay"`
	FillStagger     int     `toml:"fill_stagger"`
	FadeDuration    int     `toml:"fade_duration"`
	BounceOvershoot float64 `toml:"bounce_overshoot"`
	ReducedMotion   bool    `toml:"reduced_motion"`
}

// Loader contains progressive image loading settings.
type Loader struct {
	InitialBatchSize  int `toml:"initial_batch_size"`
	BatchSize         int `toml:"batch_size"`
	LoadTimeout       int `toml:"load_timeout"`
	UpgradeBatchDelay int `toml:"upgrade_batch_delay"`
}

// Watchdog contains stuck-cell recovery settings.
type Watchdog struct {
	Interval      int `toml:"interval"`
	StuckGrace    int `toml:"stuck_grace"`
	RecoveryDefer int `toml:"recovery_defer"`
}

// Library contains settings for the photo library index.
type Library struct {
	Extensions []string `toml:"extensions"`
	Watch      bool     `toml:"watch"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"PHOTOWALL_LOG_FORMAT"`
	Level  string `toml:"level" env:"PHOTOWALL_LOG_LEVEL"`
}

// Config encapsulates all configuration values for Photowall.
//
// Configuration sections by subsystem:
//   - Paths: directories and bind addresses
//   - Album: album endpoint, transition cadence, and prefetch policy
//   - Viewport: display geometry and the wide-layout threshold
//   - Layout: slot pattern probabilities and panorama policy
//   - Swap: single-photo replacement cadence and selection weighting
//   - Animation: choreography durations and motion preferences
//   - Loader: progressive load batching and timeouts
//   - Watchdog: stuck-cell scan cadence and recovery timing
//   - Library: photo library index scanning
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Album     Album     `toml:"album"`
	Viewport  Viewport  `toml:"viewport"`
	Layout    Layout    `toml:"layout"`
	Swap      Swap      `toml:"swap"`
	Animation Animation `toml:"animation"`
	Loader    Loader    `toml:"loader"`
	Watchdog  Watchdog  `toml:"watchdog"`
	Library   Library   `toml:"library"`
	Logging   Logging   `toml:"logging"`
}

// Sample returns the embedded annotated sample configuration file.
func Sample() string {
	return sampleConfig
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/photowall/config.toml")
}

// Load locates, parses, and validates a configuration file, then applies
// PHOTOWALL_* environment overrides. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photowall.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WideViewport reports whether the configured viewport selects the five-column budget.
func (c *Config) WideViewport() bool {
	return c.Viewport.Width >= c.Viewport.WideMinWidth
}

// TotalColumns returns the row column budget for the configured viewport.
func (c *Config) TotalColumns() int {
	if c.WideViewport() {
		return 5
	}
	return 4
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
