package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spok95/learning-platform-bot/internal/events"
)

const namespace = "learning"

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	QuizSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "quiz_submissions_total", Help: "Quiz submissions by kind and outcome",
	}, []string{"kind", "result"})
	AccessDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "access_decisions_total", Help: "Entitlement decisions by reason",
	}, []string{"reason"})
	CodeRedemptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "code_redemptions_total", Help: "Code redemption attempts by outcome",
	}, []string{"result"})
	HTTPRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_seconds", Help: "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// фоновые задачи: result = ok | error | panic
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "job", Name: "runs_total", Help: "Background job runs by outcome",
	}, []string{"job", "result"})
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "job", Name: "duration_seconds", Help: "Background job duration",
		Buckets: []float64{.05, .25, 1, 5, 30, 120},
	}, []string{"job"})
	DomainEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "domain_events_total", Help: "Published invalidation events by topic",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, DBPing, QuizSubmissions, AccessDecisions, CodeRedemptions, HTTPRequests,
		JobRuns, JobDuration, DomainEvents)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveQuiz(kind string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	QuizSubmissions.WithLabelValues(kind, result).Inc()
}

func ObserveAccess(reason string) { AccessDecisions.WithLabelValues(reason).Inc() }

func ObserveRedemption(result string) { CodeRedemptions.WithLabelValues(result).Inc() }

func ObserveJob(name, result string, d time.Duration) {
	JobRuns.WithLabelValues(name, result).Inc()
	JobDuration.WithLabelValues(name).Observe(d.Seconds())
}

// CountEvents подписывает счётчик DomainEvents на темы шины; возвращает отписку.
func CountEvents(bus *events.Bus, topics ...events.Topic) func() {
	unsubs := make([]func(), 0, len(topics))
	for _, t := range topics {
		unsubs = append(unsubs, bus.Subscribe(t, func(e events.Event) {
			DomainEvents.WithLabelValues(string(e.Topic)).Inc()
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
