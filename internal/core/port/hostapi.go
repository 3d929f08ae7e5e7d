// Package port file: internal/core/port/hostapi.go
package port

import "github.com/reshmabidikar/killbill-platform/internal/core/domain"

// HostAPI 是宿主应用提供的安全与通知接口。
// 登录获得的会话必须在所有退出路径上通过 Logout 释放。
type HostAPI interface {
	// Login 使用管理员凭据建立会话
	Login(username, password string) error
	// Logout 释放当前会话，必须可以安全地重复调用
	Logout()
	// NotifyStateChanged 向宿主上报一次插件状态变更
	NotifyStateChanged(state domain.PluginStateChange, pluginKey, pluginVersion string) error
}
