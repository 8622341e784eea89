// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ironsheep/lane-overlay/internal/imaging"
	"github.com/ironsheep/lane-overlay/internal/pipeline"
)

type Config struct {
	// Application
	LogLevel string

	// HTTP upload server
	HTTPPort       int
	MaxUploadBytes int64

	// Overlay
	LineColor     string
	LineThickness int

	// Edge extraction
	CannyLow  float64
	CannyHigh float64

	// Segment detection
	HoughThreshold int
	HoughMinLength int
	HoughMaxGap    int

	// Lane band, fraction of frame height
	BandTop float64
}

// Load reads an optional .env file from the working directory, then the
// environment. Unset or unparsable variables use their defaults.
func Load(logger zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		logger.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		LogLevel: getEnv("LANE_LOG_LEVEL", "info"),

		HTTPPort:       getEnvInt("LANE_HTTP_PORT", 5000),
		MaxUploadBytes: int64(getEnvInt("LANE_MAX_UPLOAD_BYTES", 100<<20)),

		LineColor:     getEnv("LANE_LINE_COLOR", "#FF0000"),
		LineThickness: getEnvInt("LANE_LINE_THICKNESS", 12),

		CannyLow:  getEnvFloat("LANE_CANNY_LOW", 50),
		CannyHigh: getEnvFloat("LANE_CANNY_HIGH", 100),

		HoughThreshold: getEnvInt("LANE_HOUGH_THRESHOLD", 20),
		HoughMinLength: getEnvInt("LANE_HOUGH_MIN_LENGTH", 20),
		HoughMaxGap:    getEnvInt("LANE_HOUGH_MAX_GAP", 500),

		BandTop: getEnvFloat("LANE_BAND_TOP", 0.6),
	}
}

// PipelineParams applies the configured overrides to the default stage
// parameters. Out-of-range values keep their defaults: a non-positive
// thickness, Hough threshold or minimum length, a negative gap, a band top
// outside (0,1), and Canny thresholds unless 0 < low <= high. An invalid line
// color or Canny pair is also logged.
func (c *Config) PipelineParams(logger zerolog.Logger) pipeline.Params {
	p := pipeline.DefaultParams()

	if col, err := imaging.ParseHexColor(c.LineColor); err != nil {
		logger.Warn().Err(err).Str("value", c.LineColor).Msg("Invalid LANE_LINE_COLOR, using default")
	} else {
		p.Line.Color = col
	}
	if c.LineThickness > 0 {
		p.Line.Thickness = c.LineThickness
	}

	if c.CannyLow > 0 && c.CannyHigh >= c.CannyLow {
		p.Canny.Low = c.CannyLow
		p.Canny.High = c.CannyHigh
	} else {
		logger.Warn().Float64("low", c.CannyLow).Float64("high", c.CannyHigh).
			Msg("Invalid LANE_CANNY_LOW/LANE_CANNY_HIGH, using defaults")
	}

	if c.HoughThreshold > 0 {
		p.Hough.Threshold = c.HoughThreshold
	}
	if c.HoughMinLength > 0 {
		p.Hough.MinLineLength = c.HoughMinLength
	}
	if c.HoughMaxGap >= 0 {
		p.Hough.MaxLineGap = c.HoughMaxGap
	}

	if c.BandTop > 0 && c.BandTop < 1 {
		p.Fit.BandTop = c.BandTop
	}
	return p
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
