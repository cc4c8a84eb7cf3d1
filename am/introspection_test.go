package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingByKey(settings []SettingInfo, key string) (SettingInfo, bool) {
	for _, s := range settings {
		if s.Key == key {
			return s, true
		}
	}
	return SettingInfo{}, false
}

func TestGetConfigIntrospection(t *testing.T) {
	root := isolate(t)
	projectFile := filepath.Join(root, "work", "am.toml")
	require.NoError(t, os.WriteFile(projectFile, []byte("[metrics]\nenabled = true\n"), DefaultFilePermissions))
	t.Setenv("MODX_STORAGE_BURST", "4")

	settings, err := GetConfigIntrospection()
	require.NoError(t, err)

	metrics, ok := settingByKey(settings, "metrics.enabled")
	require.True(t, ok)
	assert.Equal(t, SourceProject, metrics.Source)
	assert.Equal(t, projectFile, metrics.SourcePath)

	burst, ok := settingByKey(settings, "storage.burst")
	require.True(t, ok)
	assert.Equal(t, SourceEnvironment, burst.Source)
	assert.Equal(t, "MODX_STORAGE_BURST", burst.SourcePath)

	path, ok := settingByKey(settings, "database.path")
	require.True(t, ok)
	assert.Equal(t, SourceDefault, path.Source)

	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1].Key, settings[i].Key, "settings are sorted")
	}
}
