// Package metrics объявляет счётчики Prometheus, которые отдаются на /metrics.
package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FormEvents — переходы жизненного цикла заявок по типу события.
	FormEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_form_events_total",
		Help: "Form lifecycle transitions",
	}, []string{"event"})

	// EntriesConsumed — записи, списанные с подписок.
	EntriesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_consumed_total",
		Help: "Subscription entries consumed",
	})

	// QuotaRejections — попытки создать заявку сверх лимита.
	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_quota_rejections_total",
		Help: "Form creations rejected because the quota was exhausted",
	})

	// PlanRequests — запросы на активацию плана по результату.
	PlanRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_plan_requests_total",
		Help: "Plan activation requests by outcome",
	}, []string{"result"})

	// MailPublished — письма, переданные в очередь.
	MailPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_mail_published_total",
		Help: "Mail messages handed to the broker",
	}, []string{"kind", "result"})

	// MailDelivered — письма, обработанные отправителем.
	MailDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_mail_delivered_total",
		Help: "Mail messages processed by the sender",
	}, []string{"result"})

	// HTTPDuration — длительность обработки HTTP-запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Результаты для меток result.
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultApproved = "approved"
	ResultRejected = "rejected"
	ResultCreated  = "created"
)

// RegisterDBStats публикует статистику пула соединений database/sql.
func RegisterDBStats(db *sql.DB) error {
	return prometheus.Register(collectors.NewDBStatsCollector(db, "audit"))
}
