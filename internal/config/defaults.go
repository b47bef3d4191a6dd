package config

const (
	defaultLibraryDir = "~/photos"
	defaultCacheDir   = "~/.cache/photowall"
	defaultLogDir     = "~/.local/share/photowall/logs"
	defaultAPIBind    = "127.0.0.1:7819"
	defaultAlbumBind  = "127.0.0.1:7820"

	defaultPhotosPerAlbum       = 25
	defaultRefreshInterval      = 900
	defaultPrefetchLeadTime     = 60
	defaultMinPrefetchedPhotos  = 15
	defaultForcedReloadInterval = 8
	defaultMemoryThresholdMB    = 200
	defaultFetchRetryInterval   = 5

	defaultViewportWidth  = 1920
	defaultViewportHeight = 1080
	defaultWideMinWidth   = 2560

	defaultSwapInterval   = 10
	defaultMinWeightFloor = 1000

	defaultShrinkDuration = 600
	defaultReflowDuration = 600
	defaultSlideDuration  = 700
	defaultSlideDelay     = 150
	defaultFillStagger    = 80
	defaultFadeDuration   = 400

	defaultInitialBatchSize  = 6
	defaultLoaderBatchSize   = 5
	defaultLoadTimeout       = 30
	defaultUpgradeBatchDelay = 500

	defaultWatchdogInterval = 3
	defaultStuckGrace       = 2
	defaultRecoveryDefer    = 500

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			CacheDir:   defaultCacheDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
			AlbumBind:  defaultAlbumBind,
		},
		Album: Album{
			PhotosPerAlbum:       defaultPhotosPerAlbum,
			RefreshInterval:      defaultRefreshInterval,
			PrefetchLeadTime:     defaultPrefetchLeadTime,
			MinPrefetchedPhotos:  defaultMinPrefetchedPhotos,
			ForcedReloadInterval: defaultForcedReloadInterval,
			MemoryThresholdMB:    defaultMemoryThresholdMB,
			FetchRetryInterval:   defaultFetchRetryInterval,
		},
		Viewport: Viewport{
			Width:        defaultViewportWidth,
			Height:       defaultViewportHeight,
			WideMinWidth: defaultWideMinWidth,
		},
		Layout: Layout{
			WideSlotProbability:         0.6,
			StackedLandscapeProbability: 0.35,
			PanoramaProbability:         0.25,
			PanoramaMinAspect:           2.8,
			PanoramaReferenceAspect:     6.0,
			PanSpeed:                    30,
			StealProbability:            0.2,
			PatternAvoidRetries:         3,
		},
		Swap: Swap{
			Interval:       defaultSwapInterval,
			MinWeightFloor: defaultMinWeightFloor,
		},
		Animation: Animation{
			ShrinkDuration:  defaultShrinkDuration,
			ReflowDuration:  defaultReflowDuration,
			SlideDuration:   defaultSlideDuration,
			SlideDelay:      defaultSlideDelay,
			FillStagger:     defaultFillStagger,
			FadeDuration:    defaultFadeDuration,
			BounceOvershoot: 0.08,
		},
		Loader: Loader{
			InitialBatchSize:  defaultInitialBatchSize,
			BatchSize:         defaultLoaderBatchSize,
			LoadTimeout:       defaultLoadTimeout,
			UpgradeBatchDelay: defaultUpgradeBatchDelay,
		},
		Watchdog: Watchdog{
			Interval:      defaultWatchdogInterval,
			StuckGrace:    defaultStuckGrace,
			RecoveryDefer: defaultRecoveryDefer,
		},
		Library: Library{
			Extensions: []string{".jpg", ".jpeg", ".png"},
			Watch:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
