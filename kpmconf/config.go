// Package kpmconf 负责集中式配置加载

package kpmconf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 是插件管理器的全部配置，构造后不可变，不依赖任何全局可变状态。
type Config struct {
	StrictSSL         bool   `mapstructure:"strict_ssl"`          // 是否严格校验 TLS 证书
	ConnectTimeoutSec int    `mapstructure:"connect_timeout_sec"` // 连接超时（秒）
	ReadTimeoutSec    int    `mapstructure:"read_timeout_sec"`    // 读取超时（秒）
	NexusURL          string `mapstructure:"nexus_url"`           // 远程仓库基础地址
	NexusRepository   string `mapstructure:"nexus_repository"`    // 远程仓库名称
	AdminUsername     string `mapstructure:"admin_username"`      // 宿主通知用管理员账号
	AdminPassword     string `mapstructure:"admin_password"`      // 宿主通知用管理员密码
	PluginsDir        string `mapstructure:"plugins_dir"`         // 插件安装目录树根
	TmpDir            string `mapstructure:"tmp_dir"`             // 临时下载目录根，空表示使用系统临时目录
	LedgerDBPath      string `mapstructure:"ledger_db_path"`      // 已安装插件台账数据库路径
}

// Load 从可选的配置文件和环境变量加载配置，缺省值与宿主侧约定一致。
// configFilePath 为空时只使用缺省值和环境变量 (前缀 KPM_)。
func Load(configFilePath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("strict_ssl", true)
	v.SetDefault("connect_timeout_sec", 60)
	v.SetDefault("read_timeout_sec", 60)
	v.SetDefault("nexus_url", "https://oss.sonatype.org")
	v.SetDefault("nexus_repository", "releases")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "password")

	v.SetEnvPrefix("KPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv 只对 viper 已知的 key 生效，没有缺省值的路径类 key
	// 必须显式绑定，否则纯环境变量配置 (Load("")) 永远读不到它们
	for _, key := range []string{
		"strict_ssl", "connect_timeout_sec", "read_timeout_sec",
		"nexus_url", "nexus_repository", "admin_username", "admin_password",
		"plugins_dir", "tmp_dir", "ledger_db_path",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("绑定环境变量 '%s' 失败: %w", key, err)
		}
	}

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件 '%s' 失败: %w", configFilePath, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置到结构体失败: %w", err)
	}

	if config.ConnectTimeoutSec <= 0 || config.ReadTimeoutSec <= 0 {
		return nil, fmt.Errorf("超时配置非法: connect=%d, read=%d", config.ConnectTimeoutSec, config.ReadTimeoutSec)
	}
	if config.PluginsDir == "" {
		return nil, fmt.Errorf("插件安装目录(plugins_dir)不能为空")
	}
	if config.LedgerDBPath == "" {
		return nil, fmt.Errorf("台账数据库路径(ledger_db_path)不能为空")
	}

	return &config, nil
}
