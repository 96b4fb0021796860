package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LLAMA_PATH", "CALIBRATION_DATA_URL", "AWS_REGION", "MIRROR_BUCKET", "LEDGER_DSN"} {
		t.Setenv(key, "placeholder") // register restore of the original value
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "~/code/llama.cpp", cfg.LlamaPath)
	assert.Equal(t, DefaultCalibrationDataURL, cfg.CalibrationDataURL)
	assert.Equal(t, "us-east-1", cfg.MirrorRegion)
	assert.Empty(t, cfg.MirrorBucket)
	assert.Empty(t, cfg.LedgerDSN)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HF_USER", "someuser")
	t.Setenv("HF_TOKEN", "hf_secret")
	t.Setenv("LLAMA_PATH", "/opt/llama.cpp")
	t.Setenv("MIRROR_BUCKET", "gguf-mirror")
	t.Setenv("AWS_ACCESS_KEY_ID", "minioadmin")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "minioadmin")
	t.Setenv("LEDGER_DSN", "runs.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "someuser", cfg.HFUser)
	assert.Equal(t, "hf_secret", cfg.HFToken)
	assert.Equal(t, "/opt/llama.cpp", cfg.LlamaPath)
	assert.Equal(t, "gguf-mirror", cfg.MirrorBucket)
	assert.Equal(t, "runs.db", cfg.LedgerDSN)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HF_USER=fromfile\n"), 0o644))

	t.Setenv("HF_USER", "placeholder") // register restore of the original value
	os.Unsetenv("HF_USER")             // godotenv only fills unset keys
	LoadEnvFile(path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.HFUser)
}

func TestExpandUser(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "code", "llama.cpp"), ExpandUser("~/code/llama.cpp"))
	assert.Equal(t, home, ExpandUser("~"))
	assert.Equal(t, "/opt/llama.cpp", ExpandUser("/opt/llama.cpp"))
	assert.Equal(t, "relative/path", ExpandUser("relative/path"))
	assert.Equal(t, "~user/path", ExpandUser("~user/path"))
}
