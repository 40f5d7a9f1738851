package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snow-ghost/sleuth/core"
	"github.com/stretchr/testify/assert"
)

func TestGuard_AllowRuntime(t *testing.T) {
	g := NewGuard([]string{"go", "WASM"})
	assert.True(t, g.AllowRuntime(""), "undeclared runtime is go")
	assert.True(t, g.AllowRuntime("wasm"))
	assert.False(t, g.AllowRuntime("python"))

	wasmOnly := NewGuard([]string{"wasm"})
	assert.False(t, wasmOnly.AllowRuntime(""))

	open := NewGuard(nil)
	assert.True(t, open.AllowRuntime("anything"))
}

func TestGuard_WrapTimeout(t *testing.T) {
	g := NewGuard(nil)

	start := time.Now()
	err := g.Wrap(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		// ignores ctx on purpose: the guard must not wait
		time.Sleep(500 * time.Millisecond)
		return nil
	})
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, core.ErrSkillTimeout)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestGuard_WrapResult(t *testing.T) {
	g := NewGuard(nil)
	boom := errors.New("boom")

	assert.NoError(t, g.Wrap(context.Background(), time.Second, func(context.Context) error { return nil }))
	assert.ErrorIs(t, g.Wrap(context.Background(), time.Second, func(context.Context) error { return boom }), boom)
}

func TestGuard_WrapCanceled(t *testing.T) {
	g := NewGuard(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Wrap(ctx, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
