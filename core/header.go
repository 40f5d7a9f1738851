package core

import (
	"bufio"
	"strings"
)

// Header keys of the skill file contract.
const (
	HeaderDescription = "description"
	HeaderFilePath    = "file_path"
	HeaderRuntime     = "runtime"
)

// SkillHeader is the metadata a skill declares in its leading comment lines.
type SkillHeader struct {
	Description string
	FilePath    string
	Runtime     string // "" means the Go interpreter
}

// ParseHeader reads the leading "// key: value" lines of a skill.
// The description must be on the first line; parsing stops at the first
// line that is not such a comment.
func ParseHeader(code string) (SkillHeader, bool) {
	var h SkillHeader
	sc := bufio.NewScanner(strings.NewReader(code))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		key, value, ok := headerLine(sc.Text())
		if !ok {
			break
		}
		if first && key != HeaderDescription {
			return SkillHeader{}, false
		}
		first = false
		switch key {
		case HeaderDescription:
			h.Description = value
		case HeaderFilePath:
			h.FilePath = value
		case HeaderRuntime:
			h.Runtime = strings.ToLower(value)
		}
	}
	return h, h.Description != ""
}

// DeclaredDescription returns the description of the first line only.
func DeclaredDescription(firstLine string) (string, bool) {
	key, value, ok := headerLine(firstLine)
	if !ok || key != HeaderDescription || value == "" {
		return "", false
	}
	return value, true
}

func headerLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if !strings.HasPrefix(line, "//") {
		return "", "", false
	}
	body := strings.TrimSpace(strings.TrimPrefix(line, "//"))
	k, v, found := strings.Cut(body, ":")
	if !found {
		return "", "", false
	}
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" || strings.ContainsAny(k, " \t") {
		return "", "", false
	}
	return k, strings.TrimSpace(v), true
}
