package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snow-ghost/sleuth/core"
)

// defaultRuntime is the runtime of skills that declare none.
const defaultRuntime = "go"

// DefaultTimeout applies when a caller passes a non-positive timeout.
const DefaultTimeout = 60 * time.Second

// Guard bounds skill execution.
// - Wrap: hard wall-clock timeout; the running goroutine is abandoned on expiry
// - AllowRuntime: runtime name allowlist ("" is the Go interpreter)
type Guard struct {
	allow map[string]bool
}

// NewGuard allows the listed runtimes. An empty list allows every runtime.
func NewGuard(runtimes []string) *Guard {
	m := make(map[string]bool, len(runtimes))
	for _, n := range runtimes {
		m[runtimeName(n)] = true
	}
	return &Guard{allow: m}
}

// Wrap runs fn with a deadline. On expiry it returns an error wrapping
// core.ErrSkillTimeout without waiting for fn to return.
func (g *Guard) Wrap(ctx context.Context, timeout time.Duration, run func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(execCtx)
	}()

	select {
	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", core.ErrSkillTimeout, timeout)
		}
		return execCtx.Err()
	case err := <-done:
		return err
	}
}

// AllowRuntime reports whether skills declaring runtime may run.
func (g *Guard) AllowRuntime(runtime string) bool {
	if len(g.allow) == 0 {
		return true
	}
	return g.allow[runtimeName(runtime)]
}

func runtimeName(runtime string) string {
	name := strings.ToLower(strings.TrimSpace(runtime))
	if name == "" {
		return defaultRuntime
	}
	return name
}
