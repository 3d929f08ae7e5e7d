// Package domain file: internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// 错误分类:
//   - NamingError: 无法解析插件身份，调用方需要提供更完整的输入，不可重试。
//   - TransportError: 网络/TLS/超时/非成功状态码，调用方可重试。
//   - CatalogUnavailableError: 远程目录不可达且无可用缓存，退避后可重试。
//   - InstallationError: 文件系统失败，需要运维介入。
//   - PluginOperationError: 编排层对外的统一包装，携带根因。

// NamingError 表示无法从给定输入解析出插件身份。
type NamingError struct {
	Reason string
}

func (e *NamingError) Error() string {
	return fmt.Sprintf("插件命名解析失败: %s", e.Reason)
}

// TransportError 表示下载或网络传输层面的失败。
type TransportError struct {
	URI   string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("传输失败 (URI: %s): %v", e.URI, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// CatalogUnavailableError 表示远程目录不可达且没有可用缓存。
type CatalogUnavailableError struct {
	Endpoint string
	Cause    error
}

func (e *CatalogUnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("插件目录不可用 (端点: %s)", e.Endpoint)
	}
	return fmt.Sprintf("插件目录不可用 (端点: %s): %v", e.Endpoint, e.Cause)
}

func (e *CatalogUnavailableError) Unwrap() error { return e.Cause }

// InstallationError 表示安装阶段的文件系统失败。
type InstallationError struct {
	Path  string
	Cause error
}

func (e *InstallationError) Error() string {
	return fmt.Sprintf("插件安装失败 (路径: %s): %v", e.Path, e.Cause)
}

func (e *InstallationError) Unwrap() error { return e.Cause }

// PluginOperationError 是公共操作边界上的统一包装错误。
type PluginOperationError struct {
	Op    string // "install" / "uninstall" / "getAvailablePlugins"
	Key   string
	Cause error
}

func (e *PluginOperationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("插件操作 '%s' 失败: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("插件操作 '%s' 失败 (key: %s): %v", e.Op, e.Key, e.Cause)
}

func (e *PluginOperationError) Unwrap() error { return e.Cause }

// ErrNotImplemented 用于源规范中尚未定义语义的操作。
var ErrNotImplemented = errors.New("该操作的语义尚未定义")
