package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "stockyourlot"

// Registry 进程内指标集合
type Registry struct {
	reg *prometheus.Registry

	Incentive *IncentiveMetrics
	HTTP      *HTTPMetrics
}

// NewRegistry 创建独立的指标注册表（含 Go 运行时与进程指标）
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:       reg,
		Incentive: NewIncentiveMetrics(reg),
		HTTP:      NewHTTPMetrics(reg),
	}
}

// Handler 暴露 /metrics
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer 供测试读取
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// IncentiveMetrics 激励结算引擎指标；nil 接收者上的调用均为空操作
type IncentiveMetrics struct {
	settlements     *prometheus.CounterVec
	settledAmount   *prometheus.CounterVec
	noEffectiveRule *prometheus.CounterVec
	expirations     *prometheus.CounterVec
	legSkipped      *prometheus.CounterVec
}

// NewIncentiveMetrics 注册激励结算指标
func NewIncentiveMetrics(reg prometheus.Registerer) *IncentiveMetrics {
	m := &IncentiveMetrics{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incentive",
			Name:      "settlements_total",
			Help:      "Settlements recorded, by subject type and amount kind.",
		}, []string{"subject_type", "amount_kind"}),
		settledAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incentive",
			Name:      "settled_amount_total",
			Help:      "Sum of settled amounts, by subject type.",
		}, []string{"subject_type"}),
		noEffectiveRule: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incentive",
			Name:      "no_effective_rule_total",
			Help:      "Purchases for which a subject had no effective assignment.",
		}, []string{"subject_type"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incentive",
			Name:      "assignment_expirations_total",
			Help:      "Assignments transitioned to expired, by reason.",
		}, []string{"subject_type", "reason"}),
		legSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incentive",
			Name:      "leg_skipped_total",
			Help:      "Settlement legs skipped because of a business error.",
		}, []string{"subject_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.settlements, m.settledAmount, m.noEffectiveRule, m.expirations, m.legSkipped)
	}
	return m
}

// ObserveSettlement 记录一次结算
func (m *IncentiveMetrics) ObserveSettlement(subjectType, amountKind string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(subjectType, amountKind).Inc()
	value, _ := amount.Float64()
	m.settledAmount.WithLabelValues(subjectType).Add(value)
}

// ObserveNoEffectiveRule 记录无生效规则
func (m *IncentiveMetrics) ObserveNoEffectiveRule(subjectType string) {
	if m == nil {
		return
	}
	m.noEffectiveRule.WithLabelValues(subjectType).Inc()
}

// ObserveExpiration 记录分配失效
func (m *IncentiveMetrics) ObserveExpiration(subjectType, reason string) {
	if m == nil {
		return
	}
	m.expirations.WithLabelValues(subjectType, reason).Inc()
}

// ObserveLegSkipped 记录被隔离的结算分支
func (m *IncentiveMetrics) ObserveLegSkipped(subjectType string) {
	if m == nil {
		return
	}
	m.legSkipped.WithLabelValues(subjectType).Inc()
}

// HTTPMetrics 接口请求指标
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics 注册接口请求指标
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// ObserveRequest 记录一次请求
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
