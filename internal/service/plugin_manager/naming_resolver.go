// Package plugin_manager file: internal/service/plugin_manager/naming_resolver.go
package plugin_manager

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
)

// versionPattern 匹配文件名中内嵌的版本号, e.g., "1.2.0", "0.10.1-SNAPSHOT"
var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)*(?:-[0-9A-Za-z.]+)?`)

// ResolveNaming 从 URI 和/或显式输入推导插件的规范身份。
// 纯函数：无 I/O、无副作用，相同输入永远产生相同结果。
// 版本优先取显式传入值，否则从 URI 文件名中推断；两者都缺失时返回 NamingError。
func ResolveNaming(pluginKey, pluginVersion, sourceURI string) (domain.PluginIdentity, error) {
	if pluginKey == "" {
		return domain.PluginIdentity{}, &domain.NamingError{Reason: "插件 key 不能为空"}
	}

	baseName := artifactBaseName(sourceURI)

	version := pluginVersion
	if version == "" {
		version = inferVersionFromFileName(baseName)
	}
	if version == "" {
		return domain.PluginIdentity{}, &domain.NamingError{
			Reason: fmt.Sprintf("无法确定插件 '%s' 的版本: 未显式提供，URI '%s' 中也无法推断", pluginKey, sourceURI),
		}
	}

	// 产物文件名统一派生为 <key>-<version><ext>，扩展名跟随 URI，缺省 .jar
	ext := path.Ext(baseName)
	if ext == "" {
		ext = ".jar"
	}
	fileName := fmt.Sprintf("%s-%s%s", pluginKey, version, ext)

	return domain.PluginIdentity{
		Key:              pluginKey,
		Version:          version,
		ArtifactFileName: fileName,
	}, nil
}

// artifactBaseName 取 URI 路径的最后一段，忽略查询串。
func artifactBaseName(sourceURI string) string {
	if sourceURI == "" {
		return ""
	}
	u, err := url.Parse(sourceURI)
	if err != nil || u.Path == "" {
		return path.Base(sourceURI)
	}
	return path.Base(u.Path)
}

// inferVersionFromFileName 从文件名中提取最后一个版本号样式的片段。
func inferVersionFromFileName(baseName string) string {
	if baseName == "" || baseName == "." || baseName == "/" {
		return ""
	}
	stem := strings.TrimSuffix(baseName, path.Ext(baseName))
	matches := versionPattern.FindAllString(stem, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}
