// Package golang interprets Go skill source with yaegi.
package golang

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"

	"github.com/snow-ghost/sleuth/core"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// EntryPoint is the exported function every Go skill defines.
const EntryPoint = "Run"

// Interpreter implements core.SkillRuntime. Each invocation gets a fresh
// yaegi interpreter so skills never share package state.
type Interpreter struct {
	goPath string
}

var _ core.SkillRuntime = (*Interpreter)(nil)

// NewInterpreter returns an interpreter exposing the standard library to skills.
// goPath, when set, lets skills import packages vendored under it.
func NewInterpreter(goPath string) *Interpreter {
	return &Interpreter{goPath: goPath}
}

// Invoke loads the unit source and calls Run. A panic in the skill becomes an error.
func (g *Interpreter) Invoke(ctx context.Context, unit core.Unit) (verdict bool, err error) {
	src, err := os.ReadFile(unit.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read skill unit: %w", err)
	}
	pkg, err := PackageName(unit.Path, src)
	if err != nil {
		return false, err
	}

	defer func() {
		if r := recover(); r != nil {
			verdict, err = false, fmt.Errorf("skill panicked: %v", r)
		}
	}()

	i := interp.New(interp.Options{GoPath: g.goPath})
	if err := i.Use(stdlib.Symbols); err != nil {
		return false, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return false, fmt.Errorf("failed to load skill: %w", err)
	}

	sym := pkg + "." + EntryPoint
	if pkg == "main" {
		sym = EntryPoint
	}
	v, err := i.EvalWithContext(ctx, sym)
	if err != nil {
		return false, fmt.Errorf("%s.%s: %w", pkg, EntryPoint, core.ErrNoEntryPoint)
	}
	if !v.IsValid() || !v.CanInterface() {
		return false, fmt.Errorf("%s.%s is not callable: %w", pkg, EntryPoint, core.ErrNoEntryPoint)
	}

	switch fn := v.Interface().(type) {
	case func() (bool, error):
		return fn()
	case func() bool:
		return fn(), nil
	default:
		return false, fmt.Errorf("%s.%s has type %s, want func() (bool, error): %w",
			pkg, EntryPoint, v.Type(), core.ErrNoEntryPoint)
	}
}

// PackageName returns the package clause of a Go source file.
func PackageName(filename string, src []byte) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), filename, src, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("failed to parse skill package: %w", err)
	}
	return f.Name.Name, nil
}
