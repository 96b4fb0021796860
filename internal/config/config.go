package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultCalibrationDataURL is the calibration dataset used for importance
// matrix generation when no override is configured.
const DefaultCalibrationDataURL = "https://github.com/ggerganov/llama.cpp/files/14194570/groups_merged.txt"

// Config holds the environment-sourced settings. Command-line flags override
// the HuggingFace and llama.cpp fields at startup; everything else is
// environment-only.
type Config struct {
	HFUser    string `env:"HF_USER"`
	HFToken   string `env:"HF_TOKEN"`
	LlamaPath string `env:"LLAMA_PATH" envDefault:"~/code/llama.cpp"`

	CalibrationDataURL string `env:"CALIBRATION_DATA_URL" envDefault:"https://github.com/ggerganov/llama.cpp/files/14194570/groups_merged.txt"`

	// Optional S3-compatible mirror for published artifacts. Mirroring is
	// enabled when MirrorBucket is non-empty.
	MirrorBucket          string `env:"MIRROR_BUCKET"`
	MirrorPrefix          string `env:"MIRROR_PREFIX"`
	MirrorEndpointURL     string `env:"MIRROR_ENDPOINT_URL"`
	MirrorRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	MirrorAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	MirrorSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// Optional run-history database: a sqlite file path, or a postgres://
	// URL. Empty disables the ledger.
	LedgerDSN string `env:"LEDGER_DSN"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config from environment: %w", err)
	}

	if cfg.MirrorBucket != "" && (cfg.MirrorAccessKeyID == "" || cfg.MirrorSecretAccessKey == "") {
		slog.Warn("MIRROR_BUCKET is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing")
	}

	return &cfg, nil
}

// LoadEnvFile loads extra environment variables from a dotenv file before
// Load reads them. An empty path is a no-op.
func LoadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Fatalf("error loading .env file '%s': %v", path, err)
	}
}

// ExpandUser resolves a leading "~" in path to the current user's home
// directory, matching shell behavior for the path-valued flags.
func ExpandUser(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
