// file: internal/adapter/hostapi/client.go
package hostapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
	"github.com/reshmabidikar/killbill-platform/internal/core/port"
)

// 编译期断言，确保 Client 实现了 port.HostAPI 接口
var _ port.HostAPI = (*Client)(nil)

// Client 是一个适配器，它实现了 port.HostAPI 接口，
// 将安全与通知调用转发给宿主应用的 REST 端点。
//
// 一次 Login..Logout 序列独占整个客户端：并发调用方（例如不同插件 key 的
// 并发安装）在 Login 处排队，不会覆盖彼此的会话令牌。Login 与 Logout
// 必须成对出现，Logout 在所有退出路径上都要被调用。
type Client struct {
	baseURL    string
	httpClient *http.Client

	// sessionMu 在 Login 成功时获取，在与之配对的 Logout 中释放
	sessionMu sync.Mutex
	mu        sync.Mutex
	session   string // 当前会话令牌，空表示未登录
}

// New 创建一个新的宿主 API 客户端实例。
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Login 使用管理员凭据建立会话。登录成功后会话被独占，
// 直到配对的 Logout 释放为止；其他调用方在此阻塞排队。
func (c *Client) Login(username, password string) error {
	c.sessionMu.Lock()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/1.0/kb/security/sessions", nil)
	if err != nil {
		c.sessionMu.Unlock()
		return fmt.Errorf("构造登录请求失败: %w", err)
	}
	req.SetBasicAuth(username, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.sessionMu.Unlock()
		return fmt.Errorf("宿主登录请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.sessionMu.Unlock()
		return fmt.Errorf("宿主登录被拒绝, 状态码: %d", resp.StatusCode)
	}

	c.mu.Lock()
	c.session = resp.Header.Get("X-Killbill-Session")
	c.mu.Unlock()
	return nil
}

// Logout 释放当前会话，可安全地重复调用。
// 只有在确实存在活跃会话时才会释放 Login 建立的独占。
func (c *Client) Logout() {
	c.mu.Lock()
	session := c.session
	c.session = ""
	c.mu.Unlock()
	if session == "" {
		return
	}
	defer c.sessionMu.Unlock()

	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/1.0/kb/security/sessions", nil)
	if err != nil {
		log.Printf("⚠️ [HostAPI] 构造登出请求失败: %v", err)
		return
	}
	req.Header.Set("X-Killbill-Session", session)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️ [HostAPI] 宿主登出请求失败: %v", err)
		return
	}
	_ = resp.Body.Close()
}

// stateChangeNotification 是上报给宿主的状态变更载荷。
type stateChangeNotification struct {
	State         string `json:"state"`
	PluginKey     string `json:"plugin_key"`
	PluginVersion string `json:"plugin_version"`
}

// NotifyStateChanged 向宿主上报一次插件状态变更，要求已登录。
func (c *Client) NotifyStateChanged(state domain.PluginStateChange, pluginKey, pluginVersion string) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == "" {
		return fmt.Errorf("尚未登录宿主，无法发送状态变更通知")
	}

	payload, err := json.Marshal(stateChangeNotification{
		State:         string(state),
		PluginKey:     pluginKey,
		PluginVersion: pluginVersion,
	})
	if err != nil {
		return fmt.Errorf("序列化状态变更通知失败: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/1.0/kb/pluginsInfo/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("构造通知请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Killbill-Session", session)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送状态变更通知失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("宿主拒绝状态变更通知, 状态码: %d", resp.StatusCode)
	}
	return nil
}
