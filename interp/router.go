package interp

import (
	"context"
	"fmt"

	"github.com/snow-ghost/sleuth/core"
)

// RuntimeGo is the runtime used when a skill declares none.
const RuntimeGo = "go"

// Router dispatches a unit to the runtime named by its header.
type Router struct {
	runtimes map[string]core.SkillRuntime
}

var _ core.SkillRuntime = (*Router)(nil)

func NewRouter() *Router {
	return &Router{runtimes: make(map[string]core.SkillRuntime)}
}

// Register binds name to rt, replacing any previous binding.
func (r *Router) Register(name string, rt core.SkillRuntime) *Router {
	r.runtimes[name] = rt
	return r
}

// Names lists registered runtimes.
func (r *Router) Names() []string {
	out := make([]string, 0, len(r.runtimes))
	for n := range r.runtimes {
		out = append(out, n)
	}
	return out
}

func (r *Router) Invoke(ctx context.Context, unit core.Unit) (bool, error) {
	name := unit.Header.Runtime
	if name == "" {
		name = RuntimeGo
	}
	rt, ok := r.runtimes[name]
	if !ok {
		return false, fmt.Errorf("no runtime registered for %q", name)
	}
	return rt.Invoke(ctx, unit)
}
