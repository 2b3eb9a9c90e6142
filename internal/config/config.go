package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds everything the server needs, resolved once at startup and
// passed down explicitly. No package keeps its own view of the environment.
type Config struct {
	Port           string
	UploadDir      string
	AllowedOrigins []string

	// Classifier backend selection: "onnx", "remote" or "gemini".
	Backend        string
	ModelPath      string
	MetadataPath   string
	ModelServerURL string
	GeminiAPIKey   string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load reads configuration from the environment, filling in defaults
// relative to the current working directory.
func Load() (Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg := Config{
		Port:           getEnv("PORT", "38000"),
		UploadDir:      getEnv("UPLOAD_DIR", filepath.Join(wd, "static")),
		Backend:        getEnv("CLASSIFIER_BACKEND", "onnx"),
		ModelPath:      getEnv("MODEL_PATH", filepath.Join(wd, "models", "plant_disease.onnx")),
		MetadataPath:   getEnv("MODEL_METADATA", filepath.Join(wd, "models", "plant_disease_metadata.json")),
		ModelServerURL: getEnv("MODEL_SERVER_URL", "http://localhost:6000"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
	}

	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}
