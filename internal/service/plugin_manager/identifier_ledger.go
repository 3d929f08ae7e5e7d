// Package plugin_manager file: internal/service/plugin_manager/identifier_ledger.go
package plugin_manager

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite 驱动

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
)

// OpenLedgerDB 打开/创建台账数据库。
func OpenLedgerDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开/创建台账数据库 '%s' 失败: %w", path, err)
	}
	// 台账采用单写者语义，避免并发写入相互挤占
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("连接台账数据库 '%s' (Ping) 失败: %w", path, err)
	}
	return db, nil
}

// identifierLedger 持久化插件 key 到已安装版本的映射，是"已安装了什么"的
// 唯一事实来源。只有在文件系统安装步骤确定成功之后才允许写入。
type identifierLedger struct {
	db *sql.DB
}

// newIdentifierLedger 创建台账并确保表结构存在。
func newIdentifierLedger(db *sql.DB) (*identifierLedger, error) {
	if db == nil {
		return nil, errors.New("identifierLedger 需要一个有效的数据库连接")
	}
	query := `
    CREATE TABLE IF NOT EXISTS plugin_identifiers (
        plugin_key TEXT PRIMARY KEY,
        version TEXT NOT NULL,
        updated_at TIMESTAMP NOT NULL
    );`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("创建 'plugin_identifiers' 表失败: %w", err)
	}
	return &identifierLedger{db: db}, nil
}

// Add 记录或覆盖一个 key 的已安装版本。
func (l *identifierLedger) Add(pluginKey, version string) error {
	query := `
        INSERT INTO plugin_identifiers (plugin_key, version, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(plugin_key) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at
    `
	if _, err := l.db.Exec(query, pluginKey, version, time.Now().UTC()); err != nil {
		return fmt.Errorf("更新插件台账失败 (插件: %s, 版本: %s): %w", pluginKey, version, err)
	}
	return nil
}

// Remove 删除一个 key 在指定版本上的台账记录，记录不存在时为空操作。
func (l *identifierLedger) Remove(pluginKey, version string) error {
	if _, err := l.db.Exec(`DELETE FROM plugin_identifiers WHERE plugin_key = ? AND version = ?`, pluginKey, version); err != nil {
		return fmt.Errorf("删除插件台账记录失败 (插件: %s, 版本: %s): %w", pluginKey, version, err)
	}
	return nil
}

// Lookup 查询一个 key 的已安装版本，第二个返回值表示记录是否存在。
func (l *identifierLedger) Lookup(pluginKey string) (string, bool, error) {
	var version string
	err := l.db.QueryRow(`SELECT version FROM plugin_identifiers WHERE plugin_key = ?`, pluginKey).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("查询插件台账失败 (插件: %s): %w", pluginKey, err)
	}
	return version, true, nil
}

// Entries 返回全部台账记录，按 key 排序。
func (l *identifierLedger) Entries() ([]domain.InstalledLedgerEntry, error) {
	rows, err := l.db.Query(`SELECT plugin_key, version, updated_at FROM plugin_identifiers ORDER BY plugin_key`)
	if err != nil {
		return nil, fmt.Errorf("查询插件台账列表失败: %w", err)
	}
	defer rows.Close()

	var entries []domain.InstalledLedgerEntry
	for rows.Next() {
		var e domain.InstalledLedgerEntry
		if err := rows.Scan(&e.PluginKey, &e.Version, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("扫描插件台账行失败: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
