package config

const (
	defaultLibraryDir         = "~/music"
	defaultLogDir             = "~/.local/share/tonearm/logs"
	defaultIntegratedLoudness = -16.0
	defaultLoudnessRange      = 11.0
	defaultTruePeak           = -1.5
	defaultBitrate            = "192k"
	defaultMetadataDocument   = "album.yaml"
	defaultCacheDirName       = ".tonearm"
	defaultMinFreeRatio       = 0.05
	defaultLogLevel           = "info"
	defaultFFmpegBinary       = "ffmpeg"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Normalization: Normalization{
			IntegratedLoudness: defaultIntegratedLoudness,
			LoudnessRange:      defaultLoudnessRange,
			TruePeak:           defaultTruePeak,
			Bitrate:            defaultBitrate,
		},
		Metadata: Metadata{
			DocumentName: defaultMetadataDocument,
		},
		Cache: Cache{
			DirName: defaultCacheDirName,
		},
		Sync: Sync{
			MinFreeRatio: defaultMinFreeRatio,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
		FFmpeg: FFmpeg{
			Binary: defaultFFmpegBinary,
		},
	}
}
