// Package metrics 提供 Prometheus helper，包含 HTTP 与账本业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/investplan/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数（按路径与状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 结算执行次数
	SettleRunsTotal prometheus.Counter
	// 结算中被并发抢占而跳过的投资数
	SettleConflictsTotal prometheus.Counter
	// 已补记的收益天数累计
	DaysCreditedTotal prometheus.Counter
	// 钱包操作计数（按操作名）
	WalletOpsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New 创建并注册指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "investplan",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "investplan",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SettleRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "investplan",
			Subsystem: serviceName,
			Name:      "settle_runs_total",
			Help:      "Total earnings settlement runs",
		}),
		SettleConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "investplan",
			Subsystem: serviceName,
			Name:      "settle_conflicts_total",
			Help:      "Settlement attempts skipped because a concurrent settler advanced the checkpoint first",
		}),
		DaysCreditedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "investplan",
			Subsystem: serviceName,
			Name:      "days_credited_total",
			Help:      "Total whole days of earnings credited",
		}),
		WalletOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "investplan",
			Subsystem: serviceName,
			Name:      "wallet_ops_total",
			Help:      "Total wallet mutations by operation",
		}, []string{"op"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SettleRunsTotal,
		m.SettleConflictsTotal,
		m.DaysCreditedTotal,
		m.WalletOpsTotal,
	)

	return m
}

// ExposeHTTP 启动 /metrics 暴露端口
func (m *Metrics) ExposeHTTP(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error(context.Background(), "metrics server exited", "error", err)
	}
}
