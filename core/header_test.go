package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHeader(t *testing.T) {
	code := "// description: Confirm City A's density exceeds City B's.\n" +
		"// file_path: density/compare_a_b.go\n" +
		"package skill\n\nfunc Run() (bool, error) { return true, nil }\n"

	h, ok := ParseHeader(code)
	assert.True(t, ok)
	assert.Equal(t, "Confirm City A's density exceeds City B's.", h.Description)
	assert.Equal(t, "density/compare_a_b.go", h.FilePath)
	assert.Equal(t, "", h.Runtime)
}

func TestParseHeaderRuntime(t *testing.T) {
	h, ok := ParseHeader("// description: x.\n// runtime: WASM\n// wasm: AGFzbQ==\n")
	assert.True(t, ok)
	assert.Equal(t, "wasm", h.Runtime)
}

func TestParseHeaderRequiresDescriptionFirst(t *testing.T) {
	_, ok := ParseHeader("// file_path: a.go\n// description: x.\n")
	assert.False(t, ok)

	_, ok = ParseHeader("package skill\n")
	assert.False(t, ok)

	_, ok = ParseHeader("")
	assert.False(t, ok)
}

func TestDeclaredDescription(t *testing.T) {
	d, ok := DeclaredDescription("//description:   Check the ratio: 2 to 1.  ")
	assert.True(t, ok)
	assert.Equal(t, "Check the ratio: 2 to 1.", d)

	_, ok = DeclaredDescription("// file_path: x.go")
	assert.False(t, ok)
	_, ok = DeclaredDescription("// description:")
	assert.False(t, ok)
}
