// Package llm holds the plumbing around text generation: every generator
// call is rate limited, retried, guarded by a circuit breaker, traced and
// logged.
package llm

import (
	"context"
	"time"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/pkg/limiter"
	"github.com/snow-ghost/sleuth/pkg/logging"
	"github.com/snow-ghost/sleuth/pkg/tokens"
	"github.com/snow-ghost/sleuth/pkg/tracing"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Options configures a guarded generator.
type Options struct {
	Provider          string
	Model             string
	MaxPromptTokens   int // 0 disables the check
	RequestsPerMinute int
	Timeout           time.Duration // per request attempt, 0 for none
	Retry             *limiter.RetryConfig
	Counter           tokens.Counter
	Tracer            *tracing.Tracer
	Logger            *zap.Logger
	// Observe, when set, receives the outcome of every call.
	Observe func(status string, duration time.Duration, promptTokens int)
}

// Guarded decorates a core.Generator.
type Guarded struct {
	next       core.Generator
	protection *limiter.ProtectionManager
	opts       Options
}

var _ core.Generator = (*Guarded)(nil)

func NewGuarded(next core.Generator, opts Options) *Guarded {
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.Counter == nil {
		opts.Counter = tokens.ApproxCounter{}
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Noop()
	}
	logger := opts.Logger

	breaker := limiter.DefaultCircuitBreakerConfig("generator:" + opts.Provider)
	breaker.OnStateChange = func(name string, from, to gobreaker.State) {
		logging.LogCircuitBreaker(logger, name, from.String(), to.String())
	}
	retry := limiter.NewRetryManager(opts.Retry).OnRetry(func(attempt int, err error) {
		logging.LogRetry(logger, opts.Provider, err.Error(), attempt)
	})

	return &Guarded{
		next: next,
		protection: limiter.NewProtectionManager(
			limiter.NewRateLimiter(opts.RequestsPerMinute),
			retry,
			limiter.NewCircuitBreaker(breaker),
		),
		opts: opts,
	}
}

func (g *Guarded) Generate(ctx context.Context, prompt string) (string, error) {
	promptTokens := g.opts.Counter.Count(prompt)
	if g.opts.MaxPromptTokens > 0 && promptTokens > g.opts.MaxPromptTokens {
		g.opts.Logger.Warn("prompt exceeds token budget",
			zap.Int("prompt_tokens", promptTokens),
			zap.Int("max_prompt_tokens", g.opts.MaxPromptTokens))
	}

	ctx, span := g.opts.Tracer.StartGenerationSpan(ctx, g.opts.Provider, g.opts.Model)
	defer span.End()

	start := time.Now()
	var out string
	err := g.protection.Execute(ctx, func(ctx context.Context) error {
		if g.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
			defer cancel()
		}
		var err error
		out, err = g.next.Generate(ctx, prompt)
		return err
	})
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		tracing.RecordSpanError(span, err)
	} else {
		tracing.RecordSpanSuccess(span)
	}
	logging.LogGeneration(g.opts.Logger, g.opts.Provider, g.opts.Model, status, elapsed, promptTokens)
	if g.opts.Observe != nil {
		g.opts.Observe(status, elapsed, promptTokens)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}
