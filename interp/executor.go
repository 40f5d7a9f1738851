// Package interp executes skills. The Executor materializes a skill as an
// ephemeral unit file, routes it to a runtime, and always removes the file.
package interp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/policy/local"
	"go.uber.org/zap"
)

// Executor runs one skill at a time under a hard timeout.
type Executor struct {
	runtime    core.SkillRuntime
	guard      *local.Guard
	scratchDir string
	logger     *zap.Logger
}

// NewExecutor writes units under scratchDir (os.TempDir()/sleuth when empty).
func NewExecutor(runtime core.SkillRuntime, guard *local.Guard, scratchDir string, logger *zap.Logger) *Executor {
	if guard == nil {
		guard = local.NewGuard(nil)
	}
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "sleuth")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{runtime: runtime, guard: guard, scratchDir: scratchDir, logger: logger}
}

// ScratchDir is where ephemeral units are written.
func (e *Executor) ScratchDir() string { return e.scratchDir }

// Execute runs skill and returns its verdict. On timeout the error wraps
// core.ErrSkillTimeout; the unit file is gone when Execute returns.
func (e *Executor) Execute(ctx context.Context, skill core.Skill, timeout time.Duration) (bool, error) {
	header, _ := core.ParseHeader(skill.Code)
	if !e.guard.AllowRuntime(header.Runtime) {
		return false, fmt.Errorf("skill runtime %q is not allowed", header.Runtime)
	}

	if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	unit := core.Unit{
		Name:   "skill_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Header: header,
	}
	unit.Path = filepath.Join(e.scratchDir, unit.Name+unitExt(header.Runtime))
	if err := os.WriteFile(unit.Path, []byte(skill.Code), 0o600); err != nil {
		return false, fmt.Errorf("failed to write skill unit: %w", err)
	}
	defer func() {
		if err := os.Remove(unit.Path); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove skill unit", zap.String("path", unit.Path), zap.Error(err))
		}
	}()

	start := time.Now()
	var verdict bool
	err := e.guard.Wrap(ctx, timeout, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("skill panicked: %v", r)
			}
		}()
		verdict, err = e.runtime.Invoke(ctx, unit)
		return err
	})

	e.logger.Debug("skill executed",
		zap.String("skill_id", skill.ID),
		zap.String("unit", unit.Name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return false, err
	}
	return verdict, nil
}

func unitExt(runtime string) string {
	if runtime == "" || runtime == RuntimeGo {
		return ".go"
	}
	return "." + runtime + ".skill"
}
