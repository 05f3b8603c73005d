package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir(t *testing.T) {
	tests := []struct {
		name           string
		setupEnv       func()
		expectedResult string
	}{
		{
			name: "returns environment variable when set",
			setupEnv: func() {
				os.Setenv("FSDRIVER_CONFIG_DIR", "/custom/config/path")
			},
			expectedResult: "/custom/config/path",
		},
		{
			name: "returns default path when environment variable not set",
			setupEnv: func() {
				os.Unsetenv("FSDRIVER_CONFIG_DIR")
			},
			expectedResult: "src/fsdriver/config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()
			t.Cleanup(func() {
				os.Unsetenv("FSDRIVER_CONFIG_DIR")
			})

			assert.Equal(t, tt.expectedResult, getConfigDir())
		})
	}
}

func TestNewConfigFilePriority(t *testing.T) {
	tempDir := t.TempDir()

	meta := `files:
  - base.yaml
  - local.yaml`
	base := `sdk:
  root: /sdk/base
logging:
  level: info`
	local := `logging:
  level: debug`

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "meta.yaml"), []byte(meta), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "base.yaml"), []byte(base), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "local.yaml"), []byte(local), 0644))

	t.Setenv("FSDRIVER_CONFIG_DIR", tempDir)

	provider, err := NewConfig()
	require.NoError(t, err)
	require.NotNil(t, provider)

	sdkRoot := provider.Get("sdk.root")
	assert.True(t, sdkRoot.HasValue())
	assert.Equal(t, "/sdk/base", sdkRoot.String())

	level := provider.Get("logging.level")
	assert.True(t, level.HasValue())
	assert.Equal(t, "debug", level.String()) // local.yaml loads after base.yaml
}

func TestNewConfigMissingMeta(t *testing.T) {
	t.Setenv("FSDRIVER_CONFIG_DIR", t.TempDir())

	_, err := NewConfig()
	assert.Error(t, err)
}
