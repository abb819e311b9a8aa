package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig validates the calibrated defaults.
func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, float32(0.2), config.ScoreThreshold)
	assert.Equal(t, float32(0.4), config.IoUThreshold)
	assert.Equal(t, []int{2, 3, 7}, config.TargetClasses, "defaults should target car, motorcycle, truck")
	assert.Equal(t, float32(1.2), config.UpscaleFactor)
	assert.Equal(t, float32(0.025), config.DownshiftFraction)
	assert.Equal(t, "uint8", config.InpaintDType)
	assert.False(t, config.DelegateMask)
}

// TestLoadConfigOverlaysDefaults validates that a partial YAML file replaces
// only the keys it names.
func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "scoreThreshold: 0.5\ntargetClasses: [2]\ninpaintDType: float32\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, float32(0.5), config.ScoreThreshold, "named keys should override")
	assert.Equal(t, []int{2}, config.TargetClasses)
	assert.Equal(t, "float32", config.InpaintDType)
	assert.Equal(t, float32(0.4), config.IoUThreshold, "unnamed keys should keep defaults")
	assert.Equal(t, 100, config.MaxPerClass)
}

// TestLoadConfigMissingFile validates the read failure path.
func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err, "a missing config file should surface an error")
}
