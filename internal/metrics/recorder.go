package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"mlops-service/internal/domain"
)

// Recorder 进程内指标聚合器
//
// 六个序列全部只增不减，生命周期等于进程生命周期。标签基数由历史上
// 出现过的 (business_id, intent, response_type, model) 组合决定，上游
// 不做限制，基数无上界。
type Recorder struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	requestsTotal         *prometheus.CounterVec
	responseTimeSeconds   *prometheus.HistogramVec
	tokensUsedTotal       *prometheus.CounterVec
	apiCostUSDTotal       *prometheus.CounterVec
	appointmentsRequested *prometheus.CounterVec
	humanHandoffs         *prometheus.CounterVec
}

// NewRecorder 创建指标聚合器，使用独立的 Registry 而非默认全局注册表
func NewRecorder(logger *zap.Logger) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		logger:   logger,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Total AI requests",
			},
			[]string{"business_id", "intent", "response_type"},
		),
		responseTimeSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_response_time_seconds",
				Help:    "AI response time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"business_id"},
		),
		tokensUsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_tokens_used_total",
				Help: "Total tokens used",
			},
			[]string{"business_id", "model"},
		),
		apiCostUSDTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_api_cost_usd_total",
				Help: "Total API cost in USD",
			},
			[]string{"business_id"},
		),
		appointmentsRequested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointments_requested_total",
				Help: "Total appointment requests",
			},
			[]string{"business_id"},
		),
		humanHandoffs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "human_handoffs_total",
				Help: "Total human handoff requests",
			},
			[]string{"business_id"},
		),
	}
}

// Record 把一个事件累加进全部序列
//
// 更新过程中的任何异常（比如负数 cost 触发 counter panic）在这里兜住，
// 以布尔失败上报，不向调用方传播。
func (r *Recorder) Record(ev *domain.TrackedEvent) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Failed to update metrics",
				zap.Any("panic", rec),
				zap.String("business_id", ev.BusinessID),
			)
			ok = false
		}
	}()

	r.requestsTotal.WithLabelValues(ev.BusinessID, ev.Intent(), ev.ResponseTypeLabel()).Inc()
	r.responseTimeSeconds.WithLabelValues(ev.BusinessID).Observe(ev.ResponseTimeSeconds())
	r.tokensUsedTotal.WithLabelValues(ev.BusinessID, ev.ModelName).Add(float64(ev.TokensUsed))

	if ev.APICostUSD != nil {
		r.apiCostUSDTotal.WithLabelValues(ev.BusinessID).Add(*ev.APICostUSD)
	}
	if ev.AppointmentRequested {
		r.appointmentsRequested.WithLabelValues(ev.BusinessID).Inc()
	}
	if ev.HumanHandoffRequested {
		r.humanHandoffs.WithLabelValues(ev.BusinessID).Inc()
	}

	return true
}

// seriesDesc 序列的静态描述，用于补全导出
type seriesDesc struct {
	name string
	help string
	typ  dto.MetricType
}

// allSeries 六个序列的名称、帮助文本和类型
var allSeries = []seriesDesc{
	{"ai_requests_total", "Total AI requests", dto.MetricType_COUNTER},
	{"ai_response_time_seconds", "AI response time in seconds", dto.MetricType_HISTOGRAM},
	{"ai_tokens_used_total", "Total tokens used", dto.MetricType_COUNTER},
	{"ai_api_cost_usd_total", "Total API cost in USD", dto.MetricType_COUNTER},
	{"appointments_requested_total", "Total appointment requests", dto.MetricType_COUNTER},
	{"human_handoffs_total", "Total human handoff requests", dto.MetricType_COUNTER},
}

// Gather 导出当前全部序列，供文本格式序列化
//
// Registry.Gather 会跳过没有子序列的 vec，但导出端的约定是六个序列的
// HELP/TYPE 头在进程刚启动、还没有任何事件时也要出现，所以这里给缺席
// 的序列补上无样本的空 family。
func (r *Recorder) Gather() ([]*dto.MetricFamily, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(families))
	for _, f := range families {
		present[f.GetName()] = true
	}

	for _, s := range allSeries {
		if present[s.name] {
			continue
		}
		name, help, typ := s.name, s.help, s.typ
		families = append(families, &dto.MetricFamily{
			Name: &name,
			Help: &help,
			Type: &typ,
		})
	}

	// Registry.Gather 按名称排序，补全后保持同样的顺序
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	return families, nil
}
