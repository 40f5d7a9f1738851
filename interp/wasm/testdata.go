package wasm

// Hand-assembled modules for tests. Each exports a single function of type
// () -> i32 under the given name.

var (
	wasmHeader  = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	typeSection = []byte{0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f} // (func (result i32))
	funcSection = []byte{0x03, 0x02, 0x01, 0x00}
)

// ConstModule returns a module whose run returns 1 for true and 0 for false.
func ConstModule(verdict bool) []byte {
	v := byte(0x00)
	if verdict {
		v = 0x01
	}
	return buildModule("run", []byte{0x41, v, 0x0b}) // i32.const v; end
}

// TrapModule returns a module whose run hits unreachable.
func TrapModule() []byte {
	return buildModule("run", []byte{0x00, 0x0b})
}

// LoopModule returns a module whose run never returns.
func LoopModule() []byte {
	return buildModule("run", []byte{
		0x03, 0x40, // loop
		0x0c, 0x00, // br 0
		0x0b,       // end loop
		0x41, 0x01, // i32.const 1
		0x0b, // end
	})
}

// NamedModule returns a true-returning module exporting export instead of run.
func NamedModule(export string) []byte {
	return buildModule(export, []byte{0x41, 0x01, 0x0b})
}

// buildModule assembles one function with no locals. Sections stay below 128
// bytes so every size fits a single LEB128 byte.
func buildModule(export string, code []byte) []byte {
	body := append([]byte{0x00}, code...) // zero local declarations

	exports := []byte{0x01, byte(len(export))}
	exports = append(exports, export...)
	exports = append(exports, 0x00, 0x00) // func index 0

	codes := []byte{0x01, byte(len(body))}
	codes = append(codes, body...)

	out := append([]byte{}, wasmHeader...)
	out = append(out, typeSection...)
	out = append(out, funcSection...)
	out = append(out, 0x07, byte(len(exports)))
	out = append(out, exports...)
	out = append(out, 0x0a, byte(len(codes)))
	out = append(out, codes...)
	return out
}
