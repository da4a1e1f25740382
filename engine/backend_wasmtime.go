//go:build cgo

package engine

import (
	"context"
	"math"

	wasmtime "github.com/bytecodealliance/wasmtime-go/v3"
	"go.uber.org/zap"

	"github.com/wippyai/contract-engine/errors"
	"github.com/wippyai/contract-engine/host"
	"github.com/wippyai/contract-engine/wasm"
)

// wasmtimeBackend serves the JitCompiled mode. One wasmtime engine is shared
// by every module and instance; stores are per instance. With artifact
// caching enabled, compiled modules are serialized into the in-process
// cache and deserialized on later preprocessing of the same bytes.
type wasmtimeBackend struct {
	cfg    WasmConfig
	engine *wasmtime.Engine
	cache  *artifactCache
}

func newWasmtimeBackend(cfg WasmConfig) (*wasmtimeBackend, error) {
	b := &wasmtimeBackend{
		cfg:    cfg,
		engine: wasmtime.NewEngine(),
	}
	if modeCachesArtifacts(cfg.Mode) {
		b.cache = newArtifactCache()
	}
	return b, nil
}

func (b *wasmtimeBackend) prepare(ctx context.Context, mod *Module) error {
	var key cacheKey
	if b.cache != nil {
		key = artifactKey(b.cfg, mod.encoded)
		if art, ok := b.cache.get(key); ok {
			m, err := wasmtime.NewModuleDeserialize(b.engine, art)
			if err == nil {
				mod.artifact = m
				return nil
			}
			// Corrupt or engine-incompatible entry: recompile.
			b.cache.drop(key)
			Logger().Warn("dropped stale compiled artifact", zap.Error(err))
		}
	}

	m, err := wasmtime.NewModule(b.engine, mod.encoded)
	if err != nil {
		return errors.Backend(errors.PhasePreprocess, "compile", err)
	}
	if b.cache != nil {
		if art, err := m.Serialize(); err == nil {
			b.cache.put(key, art)
		}
	}
	mod.artifact = m
	return nil
}

func (b *wasmtimeBackend) instantiate(ctx context.Context, mod *Module, inst *Instance) (backendInstance, error) {
	compiled, ok := mod.artifact.(*wasmtime.Module)
	if !ok {
		return nil, errors.Backend(errors.PhaseInstantiate, "module has no compiled artifact", nil)
	}

	store := wasmtime.NewStore(b.engine)
	linker := wasmtime.NewLinker(b.engine)
	wi := &wasmtimeInstance{store: store}

	for _, fn := range host.Functions() {
		if fn.TestOnly && !b.cfg.TestSupport {
			continue
		}
		fn := fn
		ft := wasmtime.NewFuncType(wasmtimeValTypes(fn.Params), wasmtimeValTypes(fn.Results))
		hasResult := len(fn.Results) == 1
		err := linker.FuncNew(hostModuleName, fn.Name, ft,
			func(caller *wasmtime.Caller, vals []wasmtime.Val) ([]wasmtime.Val, *wasmtime.Trap) {
				args := make([]uint64, len(vals))
				for n, v := range vals {
					args[n] = uint64(uint32(v.I32()))
				}
				fc := &wasmtimeMemory{store: caller, mem: callerMemory(caller)}
				ret, err := inst.dispatch(wi.callCtx(), fn, fc, args)
				if err != nil {
					return nil, wasmtime.NewTrap(err.Error())
				}
				if hasResult {
					return []wasmtime.Val{wasmtime.ValI32(int32(uint32(ret)))}, nil
				}
				return nil, nil
			})
		if err != nil {
			return nil, errors.Backend(errors.PhaseInstantiate, "host module", err)
		}
	}

	instance, err := linker.Instantiate(store, compiled)
	if err != nil {
		return nil, errors.Backend(errors.PhaseInstantiate, "instantiate", err)
	}
	wi.instance = instance

	if ext := instance.GetExport(store, "memory"); ext != nil {
		wi.mem = ext.Memory()
	}
	if wi.mem == nil {
		return nil, errors.Backend(errors.PhaseInstantiate, "instance has no memory export", nil)
	}
	return wi, nil
}

func (b *wasmtimeBackend) close(ctx context.Context) error {
	return nil
}

// wasmtimeInstance is one store plus one instantiated module. The invocation
// context is stashed on the instance because wasmtime host callbacks do not
// carry one; instances are single-invoker by contract.
type wasmtimeInstance struct {
	store    *wasmtime.Store
	instance *wasmtime.Instance
	mem      *wasmtime.Memory
	ctx      context.Context
}

func (w *wasmtimeInstance) callCtx() context.Context {
	if w.ctx != nil {
		return w.ctx
	}
	return context.Background()
}

func (w *wasmtimeInstance) invoke(ctx context.Context, name string, args []Value, hasResult bool) (uint64, error) {
	ext := w.instance.GetExport(w.store, name)
	if ext == nil || ext.Func() == nil {
		return 0, errors.ExportNotFound(name)
	}

	callArgs := make([]interface{}, len(args))
	for n, arg := range args {
		switch arg.Type() {
		case wasm.ValI32:
			callArgs[n] = arg.I32()
		case wasm.ValI64:
			callArgs[n] = arg.I64()
		case wasm.ValF32:
			callArgs[n] = arg.F32()
		case wasm.ValF64:
			callArgs[n] = arg.F64()
		}
	}

	w.ctx = ctx
	defer func() { w.ctx = nil }()

	ret, err := ext.Func().Call(w.store, callArgs...)
	if err != nil {
		return 0, err
	}
	if !hasResult {
		return 0, nil
	}
	switch v := ret.(type) {
	case int32:
		return uint64(uint32(v)), nil
	case int64:
		return uint64(v), nil
	case float32:
		return uint64(math.Float32bits(v)), nil
	case float64:
		return math.Float64bits(v), nil
	default:
		return 0, nil
	}
}

func (w *wasmtimeInstance) memory() host.FunctionContext {
	return &wasmtimeMemory{store: w.store, mem: w.mem}
}

func (w *wasmtimeInstance) close(ctx context.Context) error {
	return nil
}

func callerMemory(caller *wasmtime.Caller) *wasmtime.Memory {
	if ext := caller.GetExport("memory"); ext != nil {
		return ext.Memory()
	}
	return nil
}

// wasmtimeMemory adapts wasmtime linear memory to the host memory contract.
// All access is bounds-checked against the current memory size.
type wasmtimeMemory struct {
	store wasmtime.Storelike
	mem   *wasmtime.Memory
}

func (m *wasmtimeMemory) MemoryRead(offset, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if m.mem == nil {
		return nil, errors.MemoryAccess(offset, int(size), 0)
	}
	data := m.mem.UnsafeData(m.store)
	if uint64(offset)+uint64(size) > uint64(len(data)) {
		return nil, errors.MemoryAccess(offset, int(size), len(data))
	}
	out := make([]byte, size)
	copy(out, data[offset:offset+size])
	return out, nil
}

func (m *wasmtimeMemory) MemoryWrite(offset uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if m.mem == nil {
		return errors.MemoryAccess(offset, len(data), 0)
	}
	view := m.mem.UnsafeData(m.store)
	if uint64(offset)+uint64(len(data)) > uint64(len(view)) {
		return errors.MemoryAccess(offset, len(data), len(view))
	}
	copy(view[offset:], data)
	return nil
}

func wasmtimeValTypes(types []wasm.ValType) []*wasmtime.ValType {
	out := make([]*wasmtime.ValType, len(types))
	for i, t := range types {
		switch t {
		case wasm.ValI32:
			out[i] = wasmtime.NewValType(wasmtime.KindI32)
		case wasm.ValI64:
			out[i] = wasmtime.NewValType(wasmtime.KindI64)
		case wasm.ValF32:
			out[i] = wasmtime.NewValType(wasmtime.KindF32)
		case wasm.ValF64:
			out[i] = wasmtime.NewValType(wasmtime.KindF64)
		}
	}
	return out
}
