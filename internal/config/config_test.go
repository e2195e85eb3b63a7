package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "claude"
model = "claude-sonnet-4-20250514"
api_key = "sk-test"

[detect]
providers = ["zerogpt", "originality"]

[search]
candidates = 5
target_score = 20.0
max_rollbacks = 4
max_rounds = 100

[batch]
size = 25
pacing_seconds = 1.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, []string{"zerogpt", "originality"}, cfg.Detect.Providers)
	assert.Equal(t, 5, cfg.Search.Candidates)
	assert.Equal(t, 20.0, cfg.Search.TargetScore)
	assert.Equal(t, 4, cfg.Search.MaxRollbacks)
	assert.Equal(t, 100, cfg.Search.MaxRounds)
	assert.Equal(t, 25, cfg.Batch.Size)
	assert.Equal(t, 1.5, cfg.Batch.PacingSeconds)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, []string{"zerogpt"}, cfg.Detect.Providers)
	assert.Equal(t, 7, cfg.Search.Candidates)
	assert.Equal(t, 30.0, cfg.Search.TargetScore)
	assert.Equal(t, 3, cfg.Search.MaxRollbacks)
	assert.Equal(t, 0, cfg.Search.MaxRounds)
	assert.Equal(t, 40, cfg.Batch.Size)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "openai"
api_key = "from-file"

[search]
target_score = 40.0
`)
	t.Setenv("REDRAFT_LLM_API_KEY", "from-env")
	t.Setenv("REDRAFT_TARGET_SCORE", "15")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, 15.0, cfg.Search.TargetScore)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
