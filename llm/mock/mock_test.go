package mock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Replay(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	g := New("first").PushError(boom).Push("third")

	out, err := g.Generate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	_, err = g.Generate(ctx, "p2")
	assert.ErrorIs(t, err, boom)

	out, err = g.Generate(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, "third", out)

	_, err = g.Generate(ctx, "p4")
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Equal(t, 4, g.Calls())
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, g.Prompts())
	assert.Equal(t, 0, g.Remaining())
}

func TestGenerator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := New("unused")
	_, err := g.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, g.Calls())
	assert.Equal(t, 1, g.Remaining())
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- text: Tokyo is larger than Paris.\n- text: |\n    multi\n    line\n"), 0o644))

	g, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Remaining())

	out, err := g.Generate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo is larger than Paris.", out)
	out, err = g.Generate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "multi\nline\n", out)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	f := Func(func(_ context.Context, prompt string) (string, error) { return "echo: " + prompt, nil })
	out, err := f.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}
