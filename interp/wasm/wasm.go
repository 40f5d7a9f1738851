// Package wasm runs skills that carry a precompiled WebAssembly module.
//
// A wasm skill is a text file whose header lines are followed by one or more
// "// wasm: <base64>" lines. The decoded module must export run: () -> i32;
// a non-zero result is true.
package wasm

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/snow-ghost/sleuth/core"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// RuntimeName is the header value selecting this runtime.
const RuntimeName = "wasm"

const (
	payloadKey = "wasm"
	entryPoint = "run"
	lineWidth  = 76
)

// Interpreter implements core.SkillRuntime on the wazero runtime.
type Interpreter struct {
	runtime wazero.Runtime
	cache   *lru.Cache[string, wazero.CompiledModule]
}

var _ core.SkillRuntime = (*Interpreter)(nil)

// NewInterpreter creates a runtime limited to 4MB of linear memory that
// aborts calls when their context ends. cacheSize bounds compiled modules.
func NewInterpreter(ctx context.Context, cacheSize int) (*Interpreter, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	config := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(64). // 64 pages = 4MB
		WithCloseOnContextDone(true)

	runtime := wazero.NewRuntimeWithConfig(ctx, config)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	cache, err := lru.NewWithEvict[string, wazero.CompiledModule](cacheSize, func(_ string, m wazero.CompiledModule) {
		_ = m.Close(context.Background())
	})
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("failed to create module cache: %w", err)
	}
	return &Interpreter{runtime: runtime, cache: cache}, nil
}

// Invoke decodes the module carried by the unit file and calls its entry point.
func (i *Interpreter) Invoke(ctx context.Context, unit core.Unit) (bool, error) {
	src, err := os.ReadFile(unit.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read skill unit: %w", err)
	}
	bin, err := Decode(string(src))
	if err != nil {
		return false, err
	}

	module, err := i.getOrCompileModule(ctx, bin)
	if err != nil {
		return false, fmt.Errorf("failed to compile module: %w", err)
	}

	instance, err := i.runtime.InstantiateModule(ctx, module, wazero.NewModuleConfig().
		WithName(unit.Name).
		WithStartFunctions())
	if err != nil {
		return false, fmt.Errorf("failed to instantiate module: %w", err)
	}
	defer instance.Close(ctx)

	return call(ctx, instance)
}

func call(ctx context.Context, instance api.Module) (bool, error) {
	fn := instance.ExportedFunction(entryPoint)
	if fn == nil {
		return false, fmt.Errorf("module does not export %q: %w", entryPoint, core.ErrNoEntryPoint)
	}
	def := fn.Definition()
	if len(def.ParamTypes()) != 0 || len(def.ResultTypes()) != 1 || def.ResultTypes()[0] != api.ValueTypeI32 {
		return false, fmt.Errorf("%q must have signature () -> i32: %w", entryPoint, core.ErrNoEntryPoint)
	}

	results, err := fn.Call(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to call %q: %w", entryPoint, err)
	}
	return api.DecodeI32(results[0]) != 0, nil
}

// getOrCompileModule returns a compiled module keyed by content hash.
func (i *Interpreter) getOrCompileModule(ctx context.Context, bin []byte) (wazero.CompiledModule, error) {
	sum := sha256.Sum256(bin)
	key := hex.EncodeToString(sum[:])
	if module, ok := i.cache.Get(key); ok {
		return module, nil
	}

	module, err := i.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, fmt.Errorf("failed to compile WASM module: %w", err)
	}
	i.cache.Add(key, module)
	return module, nil
}

// Cached reports the number of compiled modules held.
func (i *Interpreter) Cached() int { return i.cache.Len() }

// Close releases compiled modules and the runtime.
func (i *Interpreter) Close(ctx context.Context) error {
	i.cache.Purge()
	return i.runtime.Close(ctx)
}

// Decode concatenates the base64 payload lines of a wasm skill.
func Decode(src string) ([]byte, error) {
	var payload strings.Builder
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		body, ok := strings.CutPrefix(line, "//")
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimSpace(body), ":")
		if !ok || strings.TrimSpace(key) != payloadKey {
			continue
		}
		payload.WriteString(strings.TrimSpace(value))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan skill: %w", err)
	}
	if payload.Len() == 0 {
		return nil, fmt.Errorf("skill carries no wasm payload: %w", core.ErrNoEntryPoint)
	}
	bin, err := base64.StdEncoding.DecodeString(payload.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode wasm payload: %w", err)
	}
	return bin, nil
}

// Encode renders a wasm skill file for module.
func Encode(description, filePath string, module []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s: %s\n", core.HeaderDescription, description)
	if filePath != "" {
		fmt.Fprintf(&b, "// %s: %s\n", core.HeaderFilePath, filePath)
	}
	fmt.Fprintf(&b, "// %s: %s\n", core.HeaderRuntime, RuntimeName)
	enc := base64.StdEncoding.EncodeToString(module)
	for len(enc) > 0 {
		n := min(lineWidth, len(enc))
		fmt.Fprintf(&b, "// %s: %s\n", payloadKey, enc[:n])
		enc = enc[n:]
	}
	return b.String()
}
