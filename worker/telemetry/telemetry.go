// Package telemetry records the decision trail of the engine: every status
// transition and discarded candidate is logged and counted.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snow-ghost/sleuth/pkg/logging"
	"go.uber.org/zap"
)

const namespace = "sleuth"

// Recorder owns the engine metrics and the decision-trail logger.
type Recorder struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	Transitions       *prometheus.CounterVec
	Discards          *prometheus.CounterVec
	Passes            *prometheus.CounterVec
	PassDuration      prometheus.Histogram
	SynthesisAttempts *prometheus.CounterVec
	SkillExecutions   *prometheus.CounterVec
	SkillDuration     prometheus.Histogram
	Generations       *prometheus.CounterVec
	GenerationLatency prometheus.Histogram
	PromptTokens      prometheus.Counter
	SkillCacheHits    prometheus.Counter
	SkillCacheMisses  prometheus.Counter
}

// New registers the metrics on a private registry.
func New(logger *zap.Logger) *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		logger:   logging.OrNop(logger),
		registry: reg,

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Status transitions applied, by entity.",
		}, []string{"entity", "from", "to"}),

		Discards: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discards_total",
			Help:      "Generated candidates rejected before use.",
		}, []string{"kind", "reason"}),

		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Orchestrator passes by outcome.",
		}, []string{"outcome"}),

		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of one orchestrator pass.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),

		SynthesisAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_attempts_total",
			Help:      "Skill synthesis attempts by result.",
		}, []string{"result"}),

		SkillExecutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_executions_total",
			Help:      "Skill executions by result.",
		}, []string{"result"}),

		SkillDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "skill_duration_seconds",
			Help:      "Skill execution time.",
			Buckets:   prometheus.DefBuckets,
		}),

		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generator requests by status.",
		}, []string{"status"}),

		GenerationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "Generator request latency.",
			Buckets:   prometheus.DefBuckets,
		}),

		PromptTokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_tokens_total",
			Help:      "Prompt tokens sent to the generator.",
		}),

		SkillCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_cache_hits_total",
			Help:      "Skill lookups served from the cache.",
		}),

		SkillCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_cache_misses_total",
			Help:      "Skill lookups that went to the store.",
		}),
	}
}

// Nop returns a recorder whose metrics are never exported and whose
// logger discards everything.
func Nop() *Recorder { return New(nil) }

func (r *Recorder) Logger() *zap.Logger { return r.logger }

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Transition logs and counts one status change.
func (r *Recorder) Transition(entity, id, from, to, reason string) {
	r.Transitions.WithLabelValues(entity, from, to).Inc()
	fields := []zap.Field{
		zap.String("entity", entity),
		zap.String("id", id),
		zap.String("from", from),
		zap.String("to", to),
	}
	if reason != "" {
		fields = append(fields, zap.String("reason", reason))
	}
	r.logger.Info("status transition", fields...)
}

// Discard logs and counts one rejected candidate.
func (r *Recorder) Discard(kind, text, reason string) {
	r.Discards.WithLabelValues(kind, reason).Inc()
	r.logger.Info("candidate discarded",
		zap.String("kind", kind),
		zap.String("text", text),
		zap.String("reason", reason),
	)
}

func (r *Recorder) Pass(outcome string, d time.Duration) {
	r.Passes.WithLabelValues(outcome).Inc()
	r.PassDuration.Observe(d.Seconds())
}

func (r *Recorder) SynthesisAttempt(result string) {
	r.SynthesisAttempts.WithLabelValues(result).Inc()
}

func (r *Recorder) SkillExecuted(result string, d time.Duration) {
	r.SkillExecutions.WithLabelValues(result).Inc()
	r.SkillDuration.Observe(d.Seconds())
}

// ObserveGeneration matches llm.Options.Observe.
func (r *Recorder) ObserveGeneration(status string, d time.Duration, promptTokens int) {
	r.Generations.WithLabelValues(status).Inc()
	r.GenerationLatency.Observe(d.Seconds())
	r.PromptTokens.Add(float64(promptTokens))
}

func (r *Recorder) SkillCacheLookup(hit bool) {
	if hit {
		r.SkillCacheHits.Inc()
		return
	}
	r.SkillCacheMisses.Inc()
}

// Handler serves the private registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// HealthHandler returns a simple health check
func (r *Recorder) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"sleuth"}`))
}

// Mux exposes /metrics and /health.
func (r *Recorder) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/health", r.HealthHandler)
	return mux
}
