// Package kpmconf file: kpmconf/config_test.go
package kpmconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kpm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults match host-side contract", func(t *testing.T) {
		path := writeConfigFile(t, `
plugins_dir: /var/lib/killbill/bundles/plugins
ledger_db_path: /var/lib/killbill/kpm.db
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.True(t, cfg.StrictSSL)
		assert.Equal(t, 60, cfg.ConnectTimeoutSec)
		assert.Equal(t, 60, cfg.ReadTimeoutSec)
		assert.Equal(t, "https://oss.sonatype.org", cfg.NexusURL)
		assert.Equal(t, "releases", cfg.NexusRepository)
		assert.Equal(t, "admin", cfg.AdminUsername)
		assert.Equal(t, "password", cfg.AdminPassword)
	})

	t.Run("config file overrides defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
strict_ssl: false
connect_timeout_sec: 10
read_timeout_sec: 20
nexus_url: https://nexus.internal.example
nexus_repository: snapshots
plugins_dir: /opt/plugins
ledger_db_path: /opt/kpm.db
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.False(t, cfg.StrictSSL)
		assert.Equal(t, 10, cfg.ConnectTimeoutSec)
		assert.Equal(t, 20, cfg.ReadTimeoutSec)
		assert.Equal(t, "https://nexus.internal.example", cfg.NexusURL)
		assert.Equal(t, "snapshots", cfg.NexusRepository)
	})

	t.Run("environment-only configuration without a config file", func(t *testing.T) {
		t.Setenv("KPM_PLUGINS_DIR", "/srv/killbill/plugins")
		t.Setenv("KPM_LEDGER_DB_PATH", "/srv/killbill/kpm.db")
		t.Setenv("KPM_TMP_DIR", "/srv/killbill/tmp")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "/srv/killbill/plugins", cfg.PluginsDir)
		assert.Equal(t, "/srv/killbill/kpm.db", cfg.LedgerDBPath)
		assert.Equal(t, "/srv/killbill/tmp", cfg.TmpDir)
		// 未设置的 key 仍回落到缺省值
		assert.Equal(t, "https://oss.sonatype.org", cfg.NexusURL)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("KPM_PLUGINS_DIR", "/srv/killbill/plugins")
		t.Setenv("KPM_LEDGER_DB_PATH", "/srv/killbill/kpm.db")
		t.Setenv("KPM_NEXUS_URL", "https://nexus.env.example")
		t.Setenv("KPM_NEXUS_REPOSITORY", "staging")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "https://nexus.env.example", cfg.NexusURL)
		assert.Equal(t, "staging", cfg.NexusRepository)
	})

	t.Run("missing plugins_dir fails", func(t *testing.T) {
		path := writeConfigFile(t, `
ledger_db_path: /opt/kpm.db
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "plugins_dir")
	})

	t.Run("invalid timeout fails", func(t *testing.T) {
		path := writeConfigFile(t, `
connect_timeout_sec: 0
plugins_dir: /opt/plugins
ledger_db_path: /opt/kpm.db
`)
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("unreadable config file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
