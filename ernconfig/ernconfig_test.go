package ernconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/erncore/ernconfig"
	"github.com/ddexkit/erncore/internal/ernschema"
)

func TestDefault_MatchesSchemaDefaults(t *testing.T) {
	cfg := ernconfig.Default()
	assert.Equal(t, int64(ernschema.MaxBytesDefault), cfg.MaxBytes)
	assert.Equal(t, ernschema.MaxDepthDefault, cfg.MaxDepth)
	assert.Equal(t, int64(ernschema.StreamHighWaterMarkDefault), cfg.StreamHighWaterMark)
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := ernconfig.Load("")
	require.NoError(t, err)
	assert.Equal(t, ernconfig.Default(), cfg)
}

func TestLoad_OverlaysYAMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ernconfig.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_depth: 64\nmax_bytes: 1048576\n"), 0o644))

	cfg, err := ernconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.MaxDepth)
	assert.Equal(t, int64(1048576), cfg.MaxBytes)
	// Untouched fields keep their schema default.
	assert.Equal(t, int64(ernschema.StreamHighWaterMarkDefault), cfg.StreamHighWaterMark)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := ernconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_PresetsFallsBackToBuiltinWithoutOverridesFile(t *testing.T) {
	cfg := ernconfig.Default()
	reg, err := cfg.Presets()
	require.NoError(t, err)
	_, ok := reg.Get("spotify")
	assert.True(t, ok)
}

func TestConfig_PresetsLoadsOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
presets:
  - name: custom_partner
    target_version: "4.3"
    required: [DisplayTitleText]
    recommended: []
    enums: {}
    defaults: {}
    allowed_extension_namespaces: []
`), 0o644))

	cfg := ernconfig.Default()
	cfg.PresetOverridesFile = path
	reg, err := cfg.Presets()
	require.NoError(t, err)

	_, ok := reg.Get("custom_partner")
	assert.True(t, ok)
	_, ok = reg.Get("spotify")
	assert.True(t, ok, "overrides must layer over, not replace, the builtin table")
}
