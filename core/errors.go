package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrStaleStatus        = errors.New("status changed concurrently")
	ErrSynthesisExhausted = errors.New("skill synthesis exhausted")
	ErrNoEntryPoint       = errors.New("skill has no entry point")
	ErrSkillTimeout       = errors.New("skill execution timed out")
	ErrNoCodeBlock        = errors.New("response contains no code block")
	ErrInvalidSkillPath   = errors.New("invalid skill file path")
	ErrSkillPathTaken     = errors.New("skill file path holds another skill")
)

// TransitionError describes a rejected state change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s not allowed", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// SynthesisExhaustedError is returned when no passing skill was produced
// within the attempt budget.
type SynthesisExhaustedError struct {
	Description string
	Attempts    int
	LastErr     error
}

func (e *SynthesisExhaustedError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("synthesis for %q exhausted after %d attempts", e.Description, e.Attempts)
	}
	return fmt.Sprintf("synthesis for %q exhausted after %d attempts: %v", e.Description, e.Attempts, e.LastErr)
}

func (e *SynthesisExhaustedError) Unwrap() error { return ErrSynthesisExhausted }
