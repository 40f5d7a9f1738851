package testkit

import (
	"context"
	"time"

	"github.com/snow-ghost/sleuth/core"
)

// Executor is the part of interp.Executor the runner needs.
type Executor interface {
	Execute(ctx context.Context, skill core.Skill, timeout time.Duration) (bool, error)
}

// Case is one skill with its expected outcome.
type Case struct {
	Name    string
	Skill   core.Skill
	Want    bool
	WantErr bool
}

// Runner executes cases and aggregates metrics.
type Runner struct {
	Timeout time.Duration
}

func NewRunner() *Runner { return &Runner{Timeout: 5 * time.Second} }

// Run executes each case and reports whether all of them matched.
func (r *Runner) Run(ctx context.Context, exec Executor, cases []Case) (map[string]float64, bool, error) {
	metrics := map[string]float64{
		"cases_total":       0,
		"cases_passed":      0,
		"cases_failed":      0,
		"duration_ms_total": 0,
	}
	allPassed := true

	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return metrics, false, err
		}
		start := time.Now()
		got, err := exec.Execute(ctx, tc.Skill, r.Timeout)
		metrics["duration_ms_total"] += float64(time.Since(start).Milliseconds())
		metrics["cases_total"]++

		if evaluateCase(tc, got, err) {
			metrics["cases_passed"]++
		} else {
			metrics["cases_failed"]++
			allPassed = false
		}
	}
	return metrics, allPassed, nil
}

func evaluateCase(tc Case, got bool, err error) bool {
	if tc.WantErr {
		return err != nil
	}
	return err == nil && got == tc.Want
}
