package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/contract-engine/errors"
	"github.com/wippyai/contract-engine/host"
	"github.com/wippyai/contract-engine/wasm"
)

type wazeroKind int

const (
	wazeroInterpreter wazeroKind = iota
	wazeroCompiler
)

// wazeroBackend serves the Interpreted and NativeCompiled modes. Each
// instance gets its own wazero runtime so host function closures can bind to
// it; the compiler mode shares machine code across runtimes through a
// CompilationCache when artifact caching is enabled.
type wazeroBackend struct {
	cfg        WasmConfig
	kind       wazeroKind
	runtimeCfg wazero.RuntimeConfig
	cache      wazero.CompilationCache
}

func newWazeroBackend(cfg WasmConfig, kind wazeroKind) (*wazeroBackend, error) {
	var rc wazero.RuntimeConfig
	if kind == wazeroInterpreter {
		rc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rc = wazero.NewRuntimeConfigCompiler()
	}
	rc = rc.WithMemoryLimitPages(cfg.MaxMemory).WithCloseOnContextDone(true)

	b := &wazeroBackend{cfg: cfg, kind: kind}
	if kind == wazeroCompiler && modeCachesArtifacts(cfg.Mode) {
		b.cache = wazero.NewCompilationCache()
		rc = rc.WithCompilationCache(b.cache)
	}
	b.runtimeCfg = rc
	return b, nil
}

// prepare compiles the module in a scratch runtime so backend-level rejects
// surface at preprocess time. With a CompilationCache the generated code
// outlives the scratch runtime and instantiation reuses it.
func (b *wazeroBackend) prepare(ctx context.Context, mod *Module) error {
	r := wazero.NewRuntimeWithConfig(ctx, b.runtimeCfg)
	defer r.Close(ctx)

	if _, err := r.CompileModule(ctx, mod.encoded); err != nil {
		return errors.Backend(errors.PhasePreprocess, "compile", err)
	}
	return nil
}

func (b *wazeroBackend) instantiate(ctx context.Context, mod *Module, inst *Instance) (backendInstance, error) {
	r := wazero.NewRuntimeWithConfig(ctx, b.runtimeCfg)

	builder := r.NewHostModuleBuilder(hostModuleName)
	for _, fn := range host.Functions() {
		if fn.TestOnly && !b.cfg.TestSupport {
			continue
		}
		fn := fn
		params := wazeroValueTypes(fn.Params)
		results := wazeroValueTypes(fn.Results)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, caller api.Module, stack []uint64) {
				fc := &wazeroMemory{mem: caller.Memory()}
				args := make([]uint64, len(params))
				copy(args, stack)
				ret, err := inst.dispatch(ctx, fn, fc, args)
				if err != nil {
					panic(err)
				}
				if len(results) == 1 {
					stack[0] = ret
				}
			}), params, results).
			Export(fn.Name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		r.Close(ctx)
		return nil, errors.Backend(errors.PhaseInstantiate, "host module", err)
	}

	compiled, err := r.CompileModule(ctx, mod.encoded)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Backend(errors.PhaseInstantiate, "compile", err)
	}
	m, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		r.Close(ctx)
		return nil, errors.Backend(errors.PhaseInstantiate, "instantiate", err)
	}

	return &wazeroInstance{runtime: r, module: m}, nil
}

func (b *wazeroBackend) close(ctx context.Context) error {
	if b.cache != nil {
		return b.cache.Close(ctx)
	}
	return nil
}

type wazeroInstance struct {
	runtime wazero.Runtime
	module  api.Module
}

func (w *wazeroInstance) invoke(ctx context.Context, name string, args []Value, hasResult bool) (uint64, error) {
	fn := w.module.ExportedFunction(name)
	if fn == nil {
		return 0, errors.ExportNotFound(name)
	}
	raw := make([]uint64, len(args))
	for n, arg := range args {
		raw[n] = arg.Raw()
	}
	results, err := fn.Call(ctx, raw...)
	if err != nil {
		return 0, err
	}
	if hasResult && len(results) > 0 {
		return results[0], nil
	}
	return 0, nil
}

func (w *wazeroInstance) memory() host.FunctionContext {
	return &wazeroMemory{mem: w.module.Memory()}
}

func (w *wazeroInstance) close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

// wazeroMemory adapts api.Memory to the host memory contract. Reads copy out
// of the shared view; failures are typed errors, never panics.
type wazeroMemory struct {
	mem api.Memory
}

func (m *wazeroMemory) MemoryRead(offset, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	view, ok := m.mem.Read(offset, size)
	if !ok {
		return nil, errors.MemoryAccess(offset, int(size), int(m.mem.Size()))
	}
	out := make([]byte, size)
	copy(out, view)
	return out, nil
}

func (m *wazeroMemory) MemoryWrite(offset uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !m.mem.Write(offset, data) {
		return errors.MemoryAccess(offset, len(data), int(m.mem.Size()))
	}
	return nil
}

func wazeroValueTypes(types []wasm.ValType) []api.ValueType {
	out := make([]api.ValueType, len(types))
	for i, t := range types {
		switch t {
		case wasm.ValI32:
			out[i] = api.ValueTypeI32
		case wasm.ValI64:
			out[i] = api.ValueTypeI64
		case wasm.ValF32:
			out[i] = api.ValueTypeF32
		case wasm.ValF64:
			out[i] = api.ValueTypeF64
		}
	}
	return out
}
