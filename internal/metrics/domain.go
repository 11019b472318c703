package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_issued_total",
			Help:      "按方式统计的令牌签发次数。",
		},
		[]string{"method"},
	)

	loginFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_failures_total",
			Help:      "密码登录失败次数。",
		},
	)

	accountsProvisionedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "accounts_provisioned_total",
			Help:      "免密登录自动创建的账号数。",
		},
	)

	enrichmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "enrichment_total",
			Help:      "AI 增强调用结果统计。",
		},
		[]string{"operation", "outcome"},
	)
)

// ObserveSessionIssued 记录一次令牌签发，method 为 register/login/resume_login。
func ObserveSessionIssued(method string) {
	sessionsIssuedTotal.WithLabelValues(method).Inc()
}

// ObserveLoginFailure 记录一次凭据校验失败。
func ObserveLoginFailure() {
	loginFailuresTotal.Inc()
}

// ObserveProvisioned 记录一次自动开户。
func ObserveProvisioned() {
	accountsProvisionedTotal.Inc()
}

// ObserveEnrichment 记录 AI 调用结果，outcome 取 ok/fallback。
func ObserveEnrichment(operation, outcome string) {
	enrichmentTotal.WithLabelValues(operation, outcome).Inc()
}
