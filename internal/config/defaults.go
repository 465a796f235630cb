package config

const (
	defaultCatalogDir            = "~/.local/share/mediavault"
	defaultLogDir                = "~/.local/share/mediavault/logs"
	defaultShareMountPrefix      = "/mnt/nas"
	defaultMinMediaBytes         = 10 * 1024 * 1024
	defaultMaxWorkers            = 5
	defaultBatchSize             = 100
	defaultProbeTimeoutSeconds   = 60
	defaultFingerprintChunkBytes = 4 * 1024 * 1024
	defaultFuzzyThreshold        = 85
	defaultRetentionDays         = 30
	defaultEnrichTimeoutSeconds  = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

var defaultMediaExtensions = []string{
	".mkv", ".mp4", ".avi", ".m4v", ".mov", ".wmv", ".mpg", ".mpeg", ".ts", ".webm",
}

var defaultArchiveExtensions = []string{
	".zip", ".rar", ".7z", ".tar", ".gz",
}

var defaultDenyDirs = []string{
	".git", ".svn", "node_modules", "__pycache__", ".cache",
	"@eadir", "#recycle", ".recycle", "lost+found", ".tmp", "build", "dist",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CatalogDir:       defaultCatalogDir,
			LogDir:           defaultLogDir,
			ShareMountPrefix: defaultShareMountPrefix,
		},
		Scan: Scan{
			MediaExtensions: append([]string(nil), defaultMediaExtensions...),
			ArchiveExts:     append([]string(nil), defaultArchiveExtensions...),
			DenyDirs:        append([]string(nil), defaultDenyDirs...),
			MinMediaBytes:   defaultMinMediaBytes,
			MaxWorkers:      defaultMaxWorkers,
			BatchSize:       defaultBatchSize,
		},
		Probe: Probe{
			TimeoutSeconds:        defaultProbeTimeoutSeconds,
			FingerprintChunkBytes: defaultFingerprintChunkBytes,
		},
		Duplicates: Duplicates{
			FuzzySimilarityThreshold: defaultFuzzyThreshold,
		},
		Deletion: Deletion{
			RetentionDays: defaultRetentionDays,
		},
		Enrichment: Enrichment{
			TimeoutSeconds: defaultEnrichTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
