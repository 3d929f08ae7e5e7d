// Package kpmobserve 暴露 Prometheus 指标
package kpmobserve

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标定义
var (
	InstallsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_plugin_installs_total",
		Help: "插件安装成功总数",
	})
	InstallFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_plugin_install_failures_total",
		Help: "插件安装失败总数",
	})
	CatalogFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_catalog_fetches_total",
		Help: "远程目录抓取总数",
	})
	CatalogFetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_catalog_fetch_failures_total",
		Help: "远程目录抓取失败数",
	})
	NotifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_host_notify_failures_total",
		Help: "宿主状态变更通知失败数",
	})
)

// Register 必须在进程启动时调用一次
func Register() {
	prometheus.MustRegister(InstallsTotal, InstallFailures, CatalogFetches, CatalogFetchFailures, NotifyFailures)
}

// Handler 返回 HTTP 处理器
func Handler() http.Handler { return promhttp.Handler() }
