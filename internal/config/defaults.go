package config

const (
	defaultOutputDir = "~/.local/share/mixdown/output"
	defaultTempDir   = "~/.local/share/mixdown/temp"
	defaultLogDir    = "~/.local/share/mixdown/logs"
	defaultAssetsDir = "~/.local/share/mixdown/assets/thumbnails"

	defaultSunoBaseURL      = "https://api.sunoapi.org/api/v1"
	defaultSunoModel        = "V5"
	defaultPollInterval     = 30
	defaultJobTimeout       = 600
	defaultMaxConcurrent    = 10
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiTextModel  = "gemini-2.0-flash"
	defaultGeminiImageModel = "gemini-3-pro-image-preview"
	defaultGeminiTimeout    = 60

	defaultTransition     = "cut"
	defaultCrossfadeMs    = 3000
	defaultLoudnessDBFS   = -14.0
	defaultOutputFormat   = "mp3"
	defaultOutputBitrate  = "320k"
	defaultMaxDownloads   = 5
	defaultResolution     = "1920x1080"
	defaultFPS            = 30
	defaultVideoCodec     = "libx264"
	defaultVideoPreset    = "medium"
	defaultCRF            = 18
	defaultAudioCodec     = "aac"
	defaultAudioBitrate   = "320k"
	defaultFadeInSeconds  = 2
	defaultOverlayColor   = "white"
	defaultOverlaySize    = 140
	defaultMinTracks      = 1
	defaultNotifyTimeout  = 10
	defaultPublishPrivacy = "private"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			TempDir:   defaultTempDir,
			LogDir:    defaultLogDir,
			AssetsDir: defaultAssetsDir,
		},
		Suno: Suno{
			BaseURL:             defaultSunoBaseURL,
			Model:               defaultSunoModel,
			Instrumental:        true,
			PollIntervalSeconds: defaultPollInterval,
			JobTimeoutSeconds:   defaultJobTimeout,
			MaxConcurrent:       defaultMaxConcurrent,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			TextModel:      defaultGeminiTextModel,
			ImageModel:     defaultGeminiImageModel,
			TimeoutSeconds: defaultGeminiTimeout,
		},
		Mixer: Mixer{
			Transition:          defaultTransition,
			CrossfadeDurationMs: defaultCrossfadeMs,
			TargetLoudnessDBFS:  defaultLoudnessDBFS,
			OutputFormat:        defaultOutputFormat,
			OutputBitrate:       defaultOutputBitrate,
			MaxDownloads:        defaultMaxDownloads,
		},
		Video: Video{
			Resolution:   defaultResolution,
			FPS:          defaultFPS,
			Codec:        defaultVideoCodec,
			Preset:       defaultVideoPreset,
			CRF:          defaultCRF,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
			FadeInSecs:   defaultFadeInSeconds,
		},
		Overlay: Overlay{
			Enabled:  true,
			FontSize: defaultOverlaySize,
			Color:    defaultOverlayColor,
		},
		Pipeline: Pipeline{
			CleanupTemp: true,
			MinTracks:   defaultMinTracks,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Publish: Publish{
			Privacy: defaultPublishPrivacy,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
