package config

const (
	defaultDataDir      = "~/.local/share/cardscan"
	defaultScratchDir   = "~/.local/share/cardscan/scratch"
	defaultUploadDir    = "~/.local/share/cardscan/uploads"
	defaultLogDir       = "~/.local/share/cardscan/logs"
	defaultReviewPath   = "~/.local/share/cardscan/review/review_queue.jsonl"
	defaultDebugCropDir = "~/.local/share/cardscan/ocr_debug"
	defaultAPIBind      = "127.0.0.1:7417"

	defaultNameRetryThreshold = 180

	defaultTesseractBinary  = "tesseract"
	defaultTesseractLang    = "eng"
	defaultTesseractTimeout = 90

	defaultCatalogBaseURL = "https://api.scryfall.com"
	defaultCatalogPageCap = 20
	defaultCatalogTimeout = 45

	defaultWorkerCount  = 2
	defaultMaxAttempts  = 5
	defaultLockTimeout  = 300
	defaultPollInterval = 1

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ScratchDir:   defaultScratchDir,
			UploadDir:    defaultUploadDir,
			LogDir:       defaultLogDir,
			ReviewPath:   defaultReviewPath,
			DebugCropDir: defaultDebugCropDir,
			APIBind:      defaultAPIBind,
		},
		Tesseract: Tesseract{
			Binary:         defaultTesseractBinary,
			Language:       defaultTesseractLang,
			TimeoutSeconds: defaultTesseractTimeout,
		},
		Recognition: Recognition{
			NameEarlyExitConfidence:      85,
			NameThresholdRetryConfidence: 70,
			NameRetryThreshold:           defaultNameRetryThreshold,
			NameMinConfidence:            45,
			SlashMinConfidence:           55,
			StandaloneMinConfidence:      75,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			PageCap:        defaultCatalogPageCap,
			TimeoutSeconds: defaultCatalogTimeout,
		},
		Gate: Gate{
			NameWeight:              0.45,
			CollectorWeight:         0.35,
			DisambigWeight:          0.15,
			SymbolWeight:            0.05,
			MissingCollectorPenalty: 0.9,
			AutoIngestMinScore:      0.85,
		},
		Workers: Workers{
			Count:               defaultWorkerCount,
			MaxAttempts:         defaultMaxAttempts,
			LockTimeoutSeconds:  defaultLockTimeout,
			PollIntervalSeconds: defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
