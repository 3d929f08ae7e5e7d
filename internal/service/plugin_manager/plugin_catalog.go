// Package plugin_manager file: internal/service/plugin_manager/plugin_catalog.go
package plugin_manager

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
	"github.com/reshmabidikar/killbill-platform/internal/downloader"
	"github.com/reshmabidikar/killbill-platform/internal/kpmobserve"
)

// LatestVersionSentinel 表示"解析为目录当前最新发布版"的占位宿主版本。
const LatestVersionSentinel = "LATEST"

const (
	// 目录文档体积上限，防御异常响应
	maxCatalogDocSize = 10 << 20 // 10MB
	// 目录文档在进程内缓存的默认时长
	directoryCacheTTL = 15 * time.Minute
	// 版本解析结果缓存的容量与时长
	versionCacheSize = 64
	versionCacheTTL  = 30 * time.Minute
)

// CatalogClient 负责与 Nexus 风格的远程仓库交互：
// 把请求的宿主版本固定为具体版本及其依赖版本集，以及列出兼容插件。
// 远程抓取受熔断器保护，相同端点的并发抓取会被合并为一次。
type CatalogClient struct {
	nexusURL        string
	nexusRepository string
	transport       *downloader.Transport

	versionCache   *lru.LRU[string, domain.VersionSet]
	directoryCache *gocache.Cache
	fetchGroup     singleflight.Group
	breaker        *gobreaker.CircuitBreaker
}

// NewCatalogClient 创建目录客户端。
func NewCatalogClient(nexusURL, nexusRepository string, transport *downloader.Transport) *CatalogClient {
	settings := gobreaker.Settings{
		Name:     "plugin-catalog",
		Interval: 10 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("⚡️ [CatalogClient] 熔断器 '%s' 状态变更: %s -> %s", name, from.String(), to.String())
		},
	}

	return &CatalogClient{
		nexusURL:        strings.TrimRight(nexusURL, "/"),
		nexusRepository: nexusRepository,
		transport:       transport,
		versionCache:    lru.NewLRU[string, domain.VersionSet](versionCacheSize, nil, versionCacheTTL),
		directoryCache:  gocache.New(directoryCacheTTL, 2*directoryCacheTTL),
		breaker:         gobreaker.NewCircuitBreaker(settings),
	}
}

// ResolveVersions 把请求的宿主版本（或 LATEST 占位）固定为具体版本及依赖版本集。
// forceRefresh 为 false 时允许命中缓存；为 true 时绕过并刷新缓存。
// 远程不可达且无可用缓存时返回 CatalogUnavailableError。
func (c *CatalogClient) ResolveVersions(hostVersion string, forceRefresh bool) (domain.VersionSet, error) {
	requested := hostVersion
	if requested == "" {
		requested = LatestVersionSentinel
	}

	if !forceRefresh {
		if cached, ok := c.versionCache.Get(requested); ok {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/content/repositories/%s/org/kill-bill/billing/killbill/%s/versions.json",
		c.nexusURL, c.nexusRepository, requested)

	data, err := c.fetchDocument(endpoint)
	if err != nil {
		// 抓取失败但仍有缓存时降级到缓存结果
		if cached, ok := c.versionCache.Get(requested); ok {
			log.Printf("⚠️ [CatalogClient] 版本解析抓取失败，降级使用缓存 (宿主版本: %s): %v", requested, err)
			return cached, nil
		}
		return domain.VersionSet{}, &domain.CatalogUnavailableError{Endpoint: endpoint, Cause: err}
	}

	var versions domain.VersionSet
	if err := json.Unmarshal(data, &versions); err != nil {
		return domain.VersionSet{}, &domain.CatalogUnavailableError{
			Endpoint: endpoint,
			Cause:    fmt.Errorf("解析版本文档失败: %w", err),
		}
	}
	if versions.KillbillVersion == "" {
		return domain.VersionSet{}, &domain.CatalogUnavailableError{
			Endpoint: endpoint,
			Cause:    fmt.Errorf("版本文档未包含固定后的宿主版本"),
		}
	}

	c.versionCache.Add(requested, versions)
	return versions, nil
}

// ListAvailablePlugins 列出声明兼容 fixedHostVersion 的所有 (key, version) 对。
// 结果按 key、版本排序，保证单次调用内的输出可复现。
func (c *CatalogClient) ListAvailablePlugins(fixedHostVersion string, forceRefresh bool) ([]domain.PluginEntry, error) {
	directory, err := c.fetchDirectory(forceRefresh)
	if err != nil {
		return nil, err
	}

	var entries []domain.PluginEntry
	for _, plugin := range directory.Plugins {
		for _, v := range plugin.Versions {
			if v.KillbillVersion == fixedHostVersion {
				entries = append(entries, domain.PluginEntry{
					PluginKey:     plugin.Key,
					PluginVersion: v.Version,
				})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PluginKey != entries[j].PluginKey {
			return entries[i].PluginKey < entries[j].PluginKey
		}
		return entries[i].PluginVersion < entries[j].PluginVersion
	})
	return entries, nil
}

// ArtifactChecksum 返回目录为指定 (key, version) 声明的校验和，目录中不存在时为空串。
// 只读取缓存中的目录文档，不触发远程抓取。
func (c *CatalogClient) ArtifactChecksum(pluginKey, pluginVersion string) string {
	cached, ok := c.directoryCache.Get(c.directoryEndpoint())
	if !ok {
		return ""
	}
	directory := cached.(*domain.PluginDirectory)
	for _, plugin := range directory.Plugins {
		if plugin.Key != pluginKey {
			continue
		}
		for _, v := range plugin.Versions {
			if v.Version == pluginVersion {
				return v.Checksum
			}
		}
	}
	return ""
}

func (c *CatalogClient) directoryEndpoint() string {
	return fmt.Sprintf("%s/content/repositories/%s/plugins_directory.json", c.nexusURL, c.nexusRepository)
}

// fetchDirectory 获取并解析插件目录文档，带缓存与强制刷新语义。
func (c *CatalogClient) fetchDirectory(forceRefresh bool) (*domain.PluginDirectory, error) {
	endpoint := c.directoryEndpoint()

	if !forceRefresh {
		if cached, ok := c.directoryCache.Get(endpoint); ok {
			return cached.(*domain.PluginDirectory), nil
		}
	}

	data, err := c.fetchDocument(endpoint)
	if err != nil {
		if cached, ok := c.directoryCache.Get(endpoint); ok {
			log.Printf("⚠️ [CatalogClient] 目录抓取失败，降级使用缓存: %v", err)
			return cached.(*domain.PluginDirectory), nil
		}
		return nil, &domain.CatalogUnavailableError{Endpoint: endpoint, Cause: err}
	}

	var directory domain.PluginDirectory
	if err := json.Unmarshal(data, &directory); err != nil {
		return nil, &domain.CatalogUnavailableError{
			Endpoint: endpoint,
			Cause:    fmt.Errorf("解析目录文档失败: %w", err),
		}
	}

	c.directoryCache.Set(endpoint, &directory, gocache.DefaultExpiration)
	log.Printf("✅ [CatalogClient] 目录刷新完成，共 %d 个插件。", len(directory.Plugins))
	return &directory, nil
}

// fetchDocument 执行一次受熔断器保护的远程抓取，并合并并发的相同请求。
func (c *CatalogClient) fetchDocument(endpoint string) ([]byte, error) {
	result, err, _ := c.fetchGroup.Do(endpoint, func() (interface{}, error) {
		return c.breaker.Execute(func() (interface{}, error) {
			kpmobserve.CatalogFetches.Inc()
			data, err := c.transport.FetchLimited(endpoint, maxCatalogDocSize)
			if err != nil {
				kpmobserve.CatalogFetchFailures.Inc()
				return nil, err
			}
			return data, nil
		})
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("目录服务熔断中: %w", err)
		}
		return nil, err
	}
	return result.([]byte), nil
}
