package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	AssetDir       string `envconfig:"ASSET_DIR" default:"./data/assets"`
	AssetBaseURL   string `envconfig:"ASSET_BASE_URL" default:"/assets"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"LOG_FORMAT" default:"text"`

	ExportMultiplier int    `envconfig:"EXPORT_MULTIPLIER" default:"3"`
	ExportFilename   string `envconfig:"EXPORT_FILENAME" default:"strategy.png"`
	ExportCapacity   int    `envconfig:"EXPORT_CAPACITY" default:"32"`

	BrushWidth            float64 `envconfig:"BRUSH_WIDTH" default:"5"`
	ContinuationThreshold float64 `envconfig:"CONTINUATION_THRESHOLD" default:"50"`
	PencilColor           string  `envconfig:"PENCIL_COLOR" default:"#f00"`

	ViewportWidth  int `envconfig:"VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int `envconfig:"VIEWPORT_HEIGHT" default:"720"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in defaults without reading the environment.
func Default() *Config {
	return &Config{
		Port:                  8080,
		AssetDir:              "./data/assets",
		AssetBaseURL:          "/assets",
		JWTSecret:             "dev-secret-change-in-production",
		AllowedOrigins:        "http://localhost:5173,http://localhost:3000",
		LogLevel:              "info",
		LogFormat:             "text",
		ExportMultiplier:      3,
		ExportFilename:        "strategy.png",
		ExportCapacity:        32,
		BrushWidth:            5,
		ContinuationThreshold: 50,
		PencilColor:           "#f00",
		ViewportWidth:         1280,
		ViewportHeight:        720,
	}
}
