// Package domain file: internal/core/domain/plugin_models.go
package domain

import "time"

// PluginStateChange 表示需要通知宿主的插件状态变更类型。
type PluginStateChange string

const (
	// StateNewVersion 插件安装或升级成功后发出
	StateNewVersion PluginStateChange = "NEW_VERSION"
	// StateDisabled 插件被卸载或禁用后发出
	StateDisabled PluginStateChange = "DISABLED"
)

// PluginIdentity 是一次安装操作解析出的插件身份信息。
// 由命名解析器在安装开始时创建，之后不可再变。
type PluginIdentity struct {
	Key              string // 插件的规范化 key, e.g., "analytics"
	Version          string // 插件版本, e.g., "1.2.0"
	ArtifactFileName string // 产物文件名, e.g., "analytics-1.2.0.jar"
}

// VersionSet 是宿主某个版本对应的依赖版本快照，构造后只读。
type VersionSet struct {
	KillbillVersion  string `json:"killbill"`
	OssParentVersion string `json:"oss_parent"`
	ApiVersion       string `json:"killbill_api"`
	PluginApiVersion string `json:"plugin_api"`
	CommonsVersion   string `json:"killbill_commons"`
	PlatformVersion  string `json:"killbill_platform"`
}

// PluginEntry 是目录中一条 (插件 key, 插件版本) 记录。
type PluginEntry struct {
	PluginKey     string
	PluginVersion string
}

// AvailablePluginsModel 聚合一份 VersionSet 和与之兼容的插件列表。
// 由编排器增量填充，返回给调用方后视为不可变结果。
type AvailablePluginsModel struct {
	Versions VersionSet
	Plugins  []PluginEntry
}

// SetVersions 记录本次查询解析出的依赖版本快照。
func (m *AvailablePluginsModel) SetVersions(versions VersionSet) {
	m.Versions = versions
}

// AddPlugin 追加一条可用插件记录，保持追加顺序。
func (m *AvailablePluginsModel) AddPlugin(pluginKey, pluginVersion string) {
	m.Plugins = append(m.Plugins, PluginEntry{PluginKey: pluginKey, PluginVersion: pluginVersion})
}

// PluginDirectory 代表远程目录文档的元数据。
type PluginDirectory struct {
	Name        string            `json:"repository_name"`
	LastUpdated time.Time         `json:"last_updated"`
	Plugins     []DirectoryPlugin `json:"plugins"`
}

// DirectoryPlugin 代表目录中单个插件的完整描述信息。
type DirectoryPlugin struct {
	Key      string             `json:"key"`      // 插件的全局唯一 key, e.g., "analytics"
	Versions []DirectoryVersion `json:"versions"` // 该插件的所有已发布版本
}

// DirectoryVersion 代表插件的一个特定版本及其兼容性声明。
type DirectoryVersion struct {
	Version         string `json:"version"`          // 插件版本号, e.g., "1.0.1"
	KillbillVersion string `json:"killbill_version"` // 声明兼容的宿主版本
	Checksum        string `json:"checksum"`         // 产物校验和 (e.g., "sha256:f2ca...")
}

// InstalledLedgerEntry 是台账中一条已安装插件记录，跨进程重启持久化。
type InstalledLedgerEntry struct {
	PluginKey string
	Version   string
	UpdatedAt time.Time
}
