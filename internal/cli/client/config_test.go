package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "mw_live_0123456789abcdef"

func useConfigDir(t *testing.T, dir string) string {
	t.Helper()
	configPath := filepath.Join(dir, "config.json")

	oldGetConfigDir := getConfigDirFunc
	oldGetConfigPath := getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return dir, nil }
	getConfigPathFunc = func() (string, error) { return configPath, nil }
	t.Cleanup(func() {
		getConfigDirFunc = oldGetConfigDir
		getConfigPathFunc = oldGetConfigPath
	})
	return configPath
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "movewise"))
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "config.json"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	useConfigDir(t, t.TempDir())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configPath := useConfigDir(t, t.TempDir())
	require.NoError(t, os.WriteFile(configPath, []byte("{invalid json}"), 0600))

	config, err := LoadGlobalConfig()
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveGlobalConfig_CreatesDirectoryWithPrivateFile(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "movewise")
	configPath := useConfigDir(t, configDir)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey, APIURL: "http://localhost:8080"}))

	assert.DirExists(t, configDir)
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var stored GlobalConfig
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, testKey, stored.APIKey)
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestDeleteGlobalConfig(t *testing.T) {
	configPath := useConfigDir(t, t.TempDir())
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey, APIURL: "http://localhost:8080"}))

	require.NoError(t, DeleteGlobalConfig())
	assert.NoFileExists(t, configPath)

	// already gone
	require.NoError(t, DeleteGlobalConfig())
}

func TestIsValidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"shared secret", testKey, true},
		{"too short", "abc123", false},
		{"whitespace", "mw_live 0123456789abcdef", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIKey(tt.key))
		})
	}
}

func TestGetCredentialSource_FlagPriority(t *testing.T) {
	t.Setenv(envAPIKey, "mw_env_0123456789abcdef")
	t.Setenv(envAPIURL, "http://env:8080")

	source, key, url := GetCredentialSource(testKey, "http://flag:8080")

	assert.Equal(t, SourceFlag, source)
	assert.Equal(t, testKey, key)
	assert.Equal(t, "http://flag:8080", url)
}

func TestGetCredentialSource_EnvOverridesGlobalConfig(t *testing.T) {
	t.Setenv(envAPIKey, "mw_env_0123456789abcdef")
	t.Setenv(envAPIURL, "http://env:8080")
	useConfigDir(t, t.TempDir())
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey, APIURL: "http://global:8080"}))

	source, key, url := GetCredentialSource("", "")

	assert.Equal(t, SourceEnv, source)
	assert.Equal(t, "mw_env_0123456789abcdef", key)
	assert.Equal(t, "http://env:8080", url)
}

func TestGetCredentialSource_GlobalConfig(t *testing.T) {
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")
	useConfigDir(t, t.TempDir())
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey, APIURL: "http://global:8080"}))

	source, key, url := GetCredentialSource("", "")

	assert.Equal(t, SourceGlobalConfig, source)
	assert.Equal(t, testKey, key)
	assert.Equal(t, "http://global:8080", url)
}

func TestGetCredentialSource_PartialEnvIsIgnored(t *testing.T) {
	t.Setenv(envAPIKey, testKey)
	t.Setenv(envAPIURL, "")
	useConfigDir(t, t.TempDir())

	source, key, url := GetCredentialSource("", "")

	assert.Equal(t, SourceNone, source)
	assert.Empty(t, key)
	assert.Empty(t, url)
}
