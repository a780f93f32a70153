package config

// Config holds examina configuration.
// Stored at: ~/.examina/config.yaml
type Config struct {
	Providers  ProvidersCfg  `mapstructure:"providers" yaml:"providers"`
	Storage    StorageCfg    `mapstructure:"storage" yaml:"storage"`
	Pool       PoolCfg       `mapstructure:"pool" yaml:"pool"`
	Thresholds ThresholdsCfg `mapstructure:"thresholds" yaml:"thresholds"`
}

// ProvidersCfg groups the two AI collaborators.
type ProvidersCfg struct {
	LLM LLMCfg `mapstructure:"llm" yaml:"llm"`
	OCR OCRCfg `mapstructure:"ocr" yaml:"ocr"`
}

// LLMCfg configures the chat model used for segmentation, validation and
// image association.
type LLMCfg struct {
	Type    string `mapstructure:"type" yaml:"type"`       // "openai"
	Model   string `mapstructure:"model" yaml:"model"`     // Model name
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// OCRCfg configures the OCR fallback provider.
type OCRCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "mistral-ocr"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// StorageCfg configures file storage and upload limits.
type StorageCfg struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`           // Prefix for stored image URLs
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"` // Reject uploads above this
}

// PoolCfg configures the worker pool.
type PoolCfg struct {
	Workers   int `mapstructure:"workers" yaml:"workers"`
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// ThresholdsCfg tunes the image filters.
type ThresholdsCfg struct {
	MinImagePx int     `mapstructure:"min_image_px" yaml:"min_image_px"` // Below this on either axis, discard
	Similarity float64 `mapstructure:"similarity" yaml:"similarity"`     // Near-duplicate percent
	HeaderBand float64 `mapstructure:"header_band" yaml:"header_band"`   // Normalized Y, top of page
	FooterBand float64 `mapstructure:"footer_band" yaml:"footer_band"`   // Normalized Y, bottom of page
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersCfg{
			LLM: LLMCfg{
				Type:    "openai",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: true,
			},
			OCR: OCRCfg{
				Type:      "mistral-ocr",
				Model:     "mistral-ocr-latest",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   true,
			},
		},
		Storage: StorageCfg{
			BaseURL:     "http://localhost:8000/images",
			MaxUploadMB: 50,
		},
		Pool: PoolCfg{
			Workers:   2,
			QueueSize: 100,
		},
		Thresholds: ThresholdsCfg{
			MinImagePx: 50,
			Similarity: 95.0,
			HeaderBand: 0.15,
			FooterBand: 0.85,
		},
	}
}
