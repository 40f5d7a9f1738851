package testkit

import (
	"context"
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/interp"
	"github.com/snow-ghost/sleuth/interp/golang"
	"github.com/snow-ghost/sleuth/interp/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T) *interp.Executor {
	t.Helper()
	ctx := context.Background()
	wasmRuntime, err := wasm.NewInterpreter(ctx, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = wasmRuntime.Close(ctx) })
	router := interp.NewRouter().
		Register(interp.RuntimeGo, golang.NewInterpreter("")).
		Register(wasm.RuntimeName, wasmRuntime)
	return interp.NewExecutor(router, nil, t.TempDir(), nil)
}

func TestRunner_CannedSkills(t *testing.T) {
	cases := []Case{
		{Name: "go true", Skill: core.Skill{Code: VerdictSkill("Tokyo is large.", "", true)}, Want: true},
		{Name: "go false", Skill: core.Skill{Code: VerdictSkill("Paris is large.", "", false)}, Want: false},
		{Name: "go error", Skill: core.Skill{Code: ErrorSkill("Rome is old.", "", "overpass: syntax error")}, WantErr: true},
		{Name: "wasm true", Skill: core.Skill{Code: WasmSkill("Bern is small.", "", true)}, Want: true},
		{Name: "wasm false", Skill: core.Skill{Code: WasmSkill("Oslo is hot.", "", false)}, Want: false},
	}

	metrics, pass, err := NewRunner().Run(context.Background(), newExecutor(t), cases)
	require.NoError(t, err)
	assert.True(t, pass)
	assert.Equal(t, float64(len(cases)), metrics["cases_total"])
	assert.Equal(t, float64(len(cases)), metrics["cases_passed"])
	assert.Equal(t, 0.0, metrics["cases_failed"])
}

func TestRunner_Mismatch(t *testing.T) {
	cases := []Case{
		{Name: "wrong verdict", Skill: core.Skill{Code: VerdictSkill("A.", "", false)}, Want: true},
		{Name: "unexpected error", Skill: core.Skill{Code: ErrorSkill("B.", "", "boom")}, Want: true},
	}
	metrics, pass, err := NewRunner().Run(context.Background(), newExecutor(t), cases)
	require.NoError(t, err)
	assert.False(t, pass)
	assert.Equal(t, 2.0, metrics["cases_failed"])
}

func TestSkillHeaders(t *testing.T) {
	h, ok := core.ParseHeader(VerdictSkill("Tokyo is large.", "geo/tokyo.go", true))
	require.True(t, ok)
	assert.Equal(t, "Tokyo is large.", h.Description)
	assert.Equal(t, "geo/tokyo.go", h.FilePath)
	assert.Equal(t, "", h.Runtime)

	h, ok = core.ParseHeader(WasmSkill("Bern is small.", "", true))
	require.True(t, ok)
	assert.Equal(t, wasm.RuntimeName, h.Runtime)
}

func TestFenced(t *testing.T) {
	assert.Contains(t, Fenced("package x\n"), "```go\npackage x\n```")
}
