// Package testkit holds fixtures shared by package tests: canned skill
// sources, generator responses and a runner that checks skills against
// expected verdicts.
package testkit

import (
	"fmt"
	"strings"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/interp/wasm"
)

// GoSkill renders a Go skill whose Run body is body.
func GoSkill(description, filePath, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s: %s\n", core.HeaderDescription, description)
	if filePath != "" {
		fmt.Fprintf(&b, "// %s: %s\n", core.HeaderFilePath, filePath)
	}
	b.WriteString("package skill\n\n")
	if strings.Contains(body, "errors.") {
		b.WriteString("import \"errors\"\n\n")
	}
	fmt.Fprintf(&b, "func Run() (bool, error) {\n\t%s\n}\n", body)
	return b.String()
}

// VerdictSkill returns a skill that always answers verdict.
func VerdictSkill(description, filePath string, verdict bool) string {
	return GoSkill(description, filePath, fmt.Sprintf("return %t, nil", verdict))
}

// ErrorSkill returns a skill that always fails with msg.
func ErrorSkill(description, filePath, msg string) string {
	return GoSkill(description, filePath, fmt.Sprintf("return false, errors.New(%q)", msg))
}

// WasmSkill returns a wasm skill that always answers verdict.
func WasmSkill(description, filePath string, verdict bool) string {
	return wasm.Encode(description, filePath, wasm.ConstModule(verdict))
}

// Fenced wraps code the way a generator answers.
func Fenced(code string) string {
	return "Here is the skill:\n\n```go\n" + strings.TrimRight(code, "\n") + "\n```\n"
}

// Lines joins generated lines into one response.
func Lines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}
