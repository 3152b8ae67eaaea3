package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CODEBLUR_STYLE", "CODEBLUR_NUMBER_THRESHOLD", "CODEBLUR_FULL_STRINGS",
	"CODEBLUR_DICTIONARY", "CODEBLUR_STATE", "CODEBLUR_LOG_LEVEL",
	"CODEBLUR_LOG_FORMAT", "CODEBLUR_LOG_FILE", "PORT",
}

// isolate runs the test in an empty directory with no CODEBLUR_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayers(t *testing.T) {
	dir := isolate(t)
	yml := `style: hacker
number_threshold: 6
full_strings: true
log:
  level: debug
  format: json
listen: ":9000"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(yml), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CODEBLUR_STATE=from-dotenv.json\n"), 0o644))
	t.Setenv("CODEBLUR_NUMBER_THRESHOLD", "2")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "hacker", cfg.Style)
	assert.Equal(t, 2, cfg.NumberThreshold)
	assert.True(t, cfg.FullStringObfuscation)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "from-dotenv.json", cfg.StatePath)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown style", env: map[string]string{"CODEBLUR_STYLE": "baroque"}},
		{name: "bad threshold", env: map[string]string{"CODEBLUR_NUMBER_THRESHOLD": "many"}},
		{name: "negative threshold", env: map[string]string{"CODEBLUR_NUMBER_THRESHOLD": "-1"}},
		{name: "bad log format", env: map[string]string{"CODEBLUR_LOG_FORMAT": "xml"}},
		{name: "bad yaml", file: "style: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(tt.file), 0o644))
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestExplicitFileMustExist(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
