// Package plugin_manager file: internal/service/plugin_manager/plugin_manager.go
package plugin_manager

import (
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
	"github.com/reshmabidikar/killbill-platform/internal/core/port"
	"github.com/reshmabidikar/killbill-platform/internal/downloader"
	"github.com/reshmabidikar/killbill-platform/internal/kpmobserve"
	"github.com/reshmabidikar/killbill-platform/kpmconf"
)

// PluginManager 负责插件的版本发现、安装与台账维护。
// 它的具体方法实现被拆分到 plugin_catalog.go, plugin_installer.go 和 identifier_ledger.go 中。
type PluginManager struct {
	cfg       *kpmconf.Config
	transport *downloader.Transport
	catalog   *CatalogClient
	installer *pluginInstaller
	ledger    *identifierLedger
	hostAPI   port.HostAPI

	// 同一插件 key 的安装互斥，不同 key 互不阻塞
	installLocks *keyedMutex
}

// NewPluginManager 创建一个新的插件管理器实例。
// 配置在此一次性读入，此后不再访问任何全局可变状态。
func NewPluginManager(cfg *kpmconf.Config, db *sql.DB, hostAPI port.HostAPI) (*PluginManager, error) {
	if cfg == nil {
		return nil, errors.New("PluginManager 需要一份有效的配置")
	}
	if hostAPI == nil {
		return nil, errors.New("PluginManager 需要一个有效的宿主 API 实例")
	}

	ledger, err := newIdentifierLedger(db)
	if err != nil {
		return nil, err
	}
	installer, err := newPluginInstaller(cfg.PluginsDir, cfg.TmpDir)
	if err != nil {
		return nil, err
	}

	transport := downloader.NewTransport(
		cfg.StrictSSL,
		time.Duration(cfg.ConnectTimeoutSec)*time.Second,
		time.Duration(cfg.ReadTimeoutSec)*time.Second,
	)

	return &PluginManager{
		cfg:          cfg,
		transport:    transport,
		catalog:      NewCatalogClient(cfg.NexusURL, cfg.NexusRepository, transport),
		installer:    installer,
		ledger:       ledger,
		hostAPI:      hostAPI,
		installLocks: newKeyedMutex(),
	}, nil
}

// GetAvailablePlugins 返回与请求的宿主版本兼容的插件集合及依赖版本快照。
// 失败时不返回任何部分结果，错误即底层的目录不可用错误。
func (pm *PluginManager) GetAvailablePlugins(hostVersion string, forceDownload bool) (*domain.AvailablePluginsModel, error) {
	versions, err := pm.catalog.ResolveVersions(hostVersion, forceDownload)
	if err != nil {
		return nil, err
	}

	result := &domain.AvailablePluginsModel{}
	result.SetVersions(versions)

	// 用固定后的宿主版本列举，宿主版本无法解析时已经提前失败
	plugins, err := pm.catalog.ListAvailablePlugins(versions.KillbillVersion, forceDownload)
	if err != nil {
		return nil, err
	}
	for _, entry := range plugins {
		result.AddPlugin(entry.PluginKey, entry.PluginVersion)
	}
	return result, nil
}

// Install 通过直接下载 URI 安装插件。
// 状态机: 命名解析 → 暂存下载 → 落位安装 → 更新台账 → 通知宿主。
// 任一步失败都会中止后续步骤并返回包装后的 PluginOperationError；
// 暂存文件在所有退出路径上都会被清理；台账只在落位成功之后更新；
// 通知宿主是尽力而为的，失败只记日志，不回滚安装。
func (pm *PluginManager) Install(uri, pluginKey, pluginVersion string) error {
	identity, err := ResolveNaming(pluginKey, pluginVersion, uri)
	if err != nil {
		kpmobserve.InstallFailures.Inc()
		log.Printf("❌ [PluginManager] 安装失败于命名解析 (URI: %s, key: %s, version: %s): %v", uri, pluginKey, pluginVersion, err)
		return &domain.PluginOperationError{Op: "install", Key: pluginKey, Cause: err}
	}

	unlock := pm.installLocks.Lock(identity.Key)
	defer unlock()

	if err := pm.doInstall(uri, identity); err != nil {
		kpmobserve.InstallFailures.Inc()
		log.Printf("❌ [PluginManager] 安装失败 (URI: %s, key: %s, version: %s): %v", uri, identity.Key, identity.Version, err)
		return &domain.PluginOperationError{Op: "install", Key: identity.Key, Cause: err}
	}

	kpmobserve.InstallsTotal.Inc()
	log.Printf("🎉 [PluginManager] 插件 '%s' v%s 安装成功。", identity.Key, identity.Version)

	// 安装在产物落盘且台账更新后即告完成，通知只是尽力而为
	if err := pm.notifyStateChange(domain.StateNewVersion, identity.Key, identity.Version); err != nil {
		kpmobserve.NotifyFailures.Inc()
		log.Printf("⚠️ [PluginManager] 通知宿主状态变更失败，宿主侧插件视图可能已过期 (key: %s, version: %s): %v", identity.Key, identity.Version, err)
	}
	return nil
}

// doInstall 执行下载、落位与台账更新，暂存目录在返回前必定被删除。
func (pm *PluginManager) doInstall(uri string, identity domain.PluginIdentity) error {
	downloadDir, err := pm.installer.createTmpDownloadDir()
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.RemoveAll(downloadDir); rmErr != nil {
			log.Printf("警告: 删除临时下载目录失败 (%s): %v", downloadDir, rmErr)
		}
	}()

	stagedFile := filepath.Join(downloadDir, identity.ArtifactFileName)
	if err := pm.transport.DownloadToFile(uri, stagedFile); err != nil {
		return err
	}

	// 目录中有该产物的校验和声明时顺带校验
	if checksum := pm.catalog.ArtifactChecksum(identity.Key, identity.Version); checksum != "" {
		if err := verifyChecksum(stagedFile, checksum); err != nil {
			return &domain.InstallationError{Path: stagedFile, Cause: err}
		}
	}

	if err := pm.installer.install(stagedFile, identity); err != nil {
		return err
	}

	// 台账严格在落位成功之后更新，崩溃也不会出现"台账声称已安装但磁盘没有"
	return pm.ledger.Add(identity.Key, identity.Version)
}

// InstallFromCoordinates 按 Maven 坐标安装插件。
// 源规范尚未定义其语义，在规范补齐之前显式拒绝。
func (pm *PluginManager) InstallFromCoordinates(pluginKey, hostVersion, groupID, artifactID, version, classifier string, forceDownload bool) error {
	return &domain.PluginOperationError{Op: "install", Key: pluginKey, Cause: domain.ErrNotImplemented}
}

// Uninstall 卸载插件。
// 源规范尚未定义其语义，在规范补齐之前显式拒绝。
func (pm *PluginManager) Uninstall(pluginKey, version string) error {
	return &domain.PluginOperationError{Op: "uninstall", Key: pluginKey, Cause: domain.ErrNotImplemented}
}

// InstalledPlugins 返回台账中记录的全部已安装插件。
func (pm *PluginManager) InstalledPlugins() ([]domain.InstalledLedgerEntry, error) {
	return pm.ledger.Entries()
}

// notifyStateChange 向宿主上报状态变更，登录会话在所有路径上都会被释放。
func (pm *PluginManager) notifyStateChange(state domain.PluginStateChange, pluginKey, pluginVersion string) error {
	log.Printf("📣 [PluginManager] 通知宿主: state='%s', key='%s', version='%s'", state, pluginKey, pluginVersion)
	if err := pm.hostAPI.Login(pm.cfg.AdminUsername, pm.cfg.AdminPassword); err != nil {
		return err
	}
	defer pm.hostAPI.Logout()
	return pm.hostAPI.NotifyStateChanged(state, pluginKey, pluginVersion)
}
