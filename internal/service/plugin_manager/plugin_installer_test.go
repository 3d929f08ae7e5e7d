// Package plugin_manager file: internal/service/plugin_manager/plugin_installer_test.go
package plugin_manager

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
)

func stageArtifact(t *testing.T, content string) string {
	t.Helper()
	staged := filepath.Join(t.TempDir(), "staged.jar")
	require.NoError(t, os.WriteFile(staged, []byte(content), 0644))
	return staged
}

func TestPluginInstaller_Install(t *testing.T) {
	identity := domain.PluginIdentity{Key: "foo", Version: "1.2.0", ArtifactFileName: "foo-1.2.0.jar"}

	t.Run("promotes staged artifact into key/version layout", func(t *testing.T) {
		pi, err := newPluginInstaller(filepath.Join(t.TempDir(), "plugins"), t.TempDir())
		require.NoError(t, err)

		staged := stageArtifact(t, "artifact v1")
		require.NoError(t, pi.install(staged, identity))

		finalPath := pi.installedArtifactPath(identity)
		assert.Equal(t, filepath.Join(pi.pluginsDir, "foo", "1.2.0", "foo-1.2.0.jar"), finalPath)

		content, err := os.ReadFile(finalPath)
		require.NoError(t, err)
		assert.Equal(t, "artifact v1", string(content))

		entries, err := os.ReadDir(filepath.Dir(finalPath))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "安装目录中只应有一个产物文件")
	})

	t.Run("re-install of same key and version is idempotent", func(t *testing.T) {
		pi, err := newPluginInstaller(filepath.Join(t.TempDir(), "plugins"), t.TempDir())
		require.NoError(t, err)

		require.NoError(t, pi.install(stageArtifact(t, "first"), identity))
		require.NoError(t, pi.install(stageArtifact(t, "second"), identity))

		content, err := os.ReadFile(pi.installedArtifactPath(identity))
		require.NoError(t, err)
		assert.Equal(t, "second", string(content))
	})

	t.Run("does not disturb other installed versions", func(t *testing.T) {
		pi, err := newPluginInstaller(filepath.Join(t.TempDir(), "plugins"), t.TempDir())
		require.NoError(t, err)

		other := domain.PluginIdentity{Key: "bar", Version: "2.0.0", ArtifactFileName: "bar-2.0.0.jar"}
		require.NoError(t, pi.install(stageArtifact(t, "bar artifact"), other))
		require.NoError(t, pi.install(stageArtifact(t, "foo artifact"), identity))

		content, err := os.ReadFile(pi.installedArtifactPath(other))
		require.NoError(t, err)
		assert.Equal(t, "bar artifact", string(content))
	})

	t.Run("rejects path traversal in artifact file name", func(t *testing.T) {
		pi, err := newPluginInstaller(filepath.Join(t.TempDir(), "plugins"), t.TempDir())
		require.NoError(t, err)

		bad := domain.PluginIdentity{Key: "foo", Version: "1.0.0", ArtifactFileName: "../../evil.jar"}
		err = pi.install(stageArtifact(t, "evil"), bad)

		require.Error(t, err)
		var installErr *domain.InstallationError
		assert.True(t, errors.As(err, &installErr))
	})

	t.Run("missing staged file is an InstallationError", func(t *testing.T) {
		pi, err := newPluginInstaller(filepath.Join(t.TempDir(), "plugins"), t.TempDir())
		require.NoError(t, err)

		err = pi.install(filepath.Join(t.TempDir(), "nope.jar"), identity)
		require.Error(t, err)
		var installErr *domain.InstallationError
		assert.True(t, errors.As(err, &installErr))
	})
}

func TestPluginInstaller_CreateTmpDownloadDir(t *testing.T) {
	pi, err := newPluginInstaller(filepath.Join(t.TempDir(), "plugins"), t.TempDir())
	require.NoError(t, err)

	first, err := pi.createTmpDownloadDir()
	require.NoError(t, err)
	second, err := pi.createTmpDownloadDir()
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "每次安装的临时目录必须独占")
	assert.DirExists(t, first)
	assert.DirExists(t, second)
}

func TestVerifyChecksum(t *testing.T) {
	staged := stageArtifact(t, "checksum me")
	sum := sha256.Sum256([]byte("checksum me"))
	good := "sha256:" + hex.EncodeToString(sum[:])

	t.Run("matching checksum passes", func(t *testing.T) {
		assert.NoError(t, verifyChecksum(staged, good))
	})

	t.Run("mismatched checksum fails", func(t *testing.T) {
		err := verifyChecksum(staged, "sha256:deadbeef")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "校验和不匹配")
	})

	t.Run("unsupported algorithm fails", func(t *testing.T) {
		err := verifyChecksum(staged, "md5:abc")
		require.Error(t, err)
	})
}
