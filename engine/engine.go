package engine

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/contract-engine/errors"
	"github.com/wippyai/contract-engine/host"
	"github.com/wippyai/contract-engine/wasm"
)

// gasFunctionName is the import name owned by the gas injector. Modules may
// only import it themselves when instrumentation is off.
const gasFunctionName = "gas"

// backend prepares modules and builds instances for one execution mode.
type backend interface {
	// prepare compiles whatever the backend can share across instances and
	// stores it on the module.
	prepare(ctx context.Context, mod *Module) error

	// instantiate links the module against the host and returns a ready
	// backend instance.
	instantiate(ctx context.Context, mod *Module, inst *Instance) (backendInstance, error)

	close(ctx context.Context) error
}

// backendInstance is one linked execution of a module.
type backendInstance interface {
	// invoke calls an exported function. The returned raw value is only
	// meaningful when hasResult is true.
	invoke(ctx context.Context, name string, args []Value, hasResult bool) (uint64, error)

	// memory returns the instance's linear memory adapter.
	memory() host.FunctionContext

	close(ctx context.Context) error
}

// WasmEngine preprocesses contract wasm and executes it on the configured
// backend. One engine serves many modules and instances concurrently.
type WasmEngine struct {
	cfg      WasmConfig
	resolver *Resolver
	backend  backend
}

// New builds an engine for cfg.Mode. JitCompiled requires a build with cgo.
func New(cfg WasmConfig) (*WasmEngine, error) {
	if cfg.Mode == nil {
		cfg.Mode = Interpreted{}
	}
	resolver, err := NewResolver(cfg.ProtocolVersion, cfg)
	if err != nil {
		return nil, err
	}

	var be backend
	switch mode := cfg.Mode.(type) {
	case Interpreted:
		be, err = newWazeroBackend(cfg, wazeroInterpreter)
	case NativeCompiled:
		be, err = newWazeroBackend(cfg, wazeroCompiler)
	case JitCompiled:
		be, err = newWasmtimeBackend(cfg)
	default:
		return nil, errors.InvalidInput(errors.PhasePreprocess,
			fmt.Sprintf("unknown execution mode %T", mode))
	}
	if err != nil {
		return nil, err
	}

	Logger().Debug("engine created",
		zap.String("mode", ModeName(cfg.Mode)),
		zap.String("protocol_version", cfg.ProtocolVersion.String()))

	return &WasmEngine{cfg: cfg, resolver: resolver, backend: be}, nil
}

// Config returns the engine's configuration.
func (e *WasmEngine) Config() WasmConfig {
	return e.cfg
}

// Close releases backend resources. Instances created by this engine must
// not be used afterwards.
func (e *WasmEngine) Close(ctx context.Context) error {
	return e.backend.close(ctx)
}

// Preprocess decodes, validates, and prepares contract bytes for execution:
// start sections are rejected, the module must declare its own memory, the
// declared memory maximum is clamped to the configured ceiling, static
// limits are enforced, and instrumenting modes inject gas metering and the
// stack height limiter. The result is deterministic for a given input and
// config.
func (e *WasmEngine) Preprocess(ctx context.Context, code []byte) (*Module, error) {
	m, err := wasm.ParseModuleValidate(code)
	if err != nil {
		return nil, errors.InvalidBinary("decode", err)
	}

	if m.Start != nil {
		return nil, errors.New(errors.PhasePreprocess, errors.KindStartSection).
			Detail("start section is not allowed").Build()
	}
	if m.NumImportedMemories() > 0 {
		return nil, errors.New(errors.PhasePreprocess, errors.KindMemoryMismatch).
			Detail("imported memory is not allowed").Build()
	}
	if len(m.Memories) == 0 {
		return nil, errors.New(errors.PhasePreprocess, errors.KindMissingMemory).
			Detail("module declares no memory").Build()
	}

	mem := &m.Memories[0]
	if mem.Limits.Min > e.cfg.MaxMemory {
		return nil, errors.MemoryMismatch(mem.Limits.Min, e.cfg.MaxMemory)
	}
	if mem.Limits.Max == nil || *mem.Limits.Max > e.cfg.MaxMemory {
		maxPages := e.cfg.MaxMemory
		mem.Limits.Max = &maxPages
	}

	// Backends reach the caller's memory through the "memory" export.
	memoryExported := false
	for _, exp := range m.Exports {
		if exp.Name == "memory" {
			if exp.Kind != wasm.KindMemory {
				return nil, errors.New(errors.PhasePreprocess, errors.KindMemoryMismatch).
					Detail(`export "memory" is not a memory`).Build()
			}
			memoryExported = true
		}
	}
	if !memoryExported {
		m.Exports = append(m.Exports, wasm.Export{Name: "memory", Kind: wasm.KindMemory, Idx: 0})
	}

	if err := m.CheckLimits(wasm.DefaultValidationLimits); err != nil {
		return nil, errors.Wrap(errors.PhasePreprocess, errors.KindLimitExceeded, err, "static limits")
	}

	if modeInstruments(e.cfg.Mode) {
		for _, imp := range m.Imports {
			if imp.Module == hostModuleName && imp.Name == gasFunctionName {
				return nil, errors.ReservedImport(imp.Module, imp.Name)
			}
		}
		if err := wasm.InjectGasCounter(m, e.cfg.OpcodeCosts, hostModuleName, gasFunctionName); err != nil {
			var forbidden *wasm.ForbiddenOpcodeError
			if stderrors.As(err, &forbidden) {
				return nil, errors.ForbiddenOpcode(forbidden.Opcode, forbidden.FuncIndex)
			}
			return nil, errors.Wrap(errors.PhasePreprocess, errors.KindInvalidBinary, err, "gas metering")
		}
		if err := wasm.InjectStackLimiter(m, e.cfg.MaxStackHeight); err != nil {
			return nil, errors.Wrap(errors.PhasePreprocess, errors.KindInvalidBinary, err, "stack limiter")
		}
	}

	mod := &Module{
		engine:   e,
		original: code,
		encoded:  m.Encode(),
		decoded:  m,
	}
	if err := e.backend.prepare(ctx, mod); err != nil {
		return nil, err
	}
	return mod, nil
}

// InstanceAndMemory resolves the module's imports against the host function
// table and links a fresh instance with its own linear memory.
func (e *WasmEngine) InstanceAndMemory(ctx context.Context, mod *Module, h host.Host) (*Instance, error) {
	if mod.engine != e {
		return nil, errors.InvalidInput(errors.PhaseInstantiate, "module was preprocessed by a different engine")
	}
	if err := e.resolver.CheckImports(mod.decoded); err != nil {
		return nil, err
	}

	inst := &Instance{engine: e, mod: mod, host: h}
	be, err := e.backend.instantiate(ctx, mod, inst)
	if err != nil {
		return nil, err
	}
	inst.be = be
	inst.state.Store(int32(stateLinked))
	return inst, nil
}
