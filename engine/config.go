package engine

import "fmt"

// OptimizationLevel selects how aggressively the ahead-of-time compiler
// optimizes generated code.
type OptimizationLevel int

const (
	// Speed optimizes for execution speed.
	Speed OptimizationLevel = iota
	// Debug disables optimizations to keep generated code debuggable.
	Debug
)

// ExecutionMode selects the backend a module is preprocessed for and
// executed on. The set is closed: Interpreted, NativeCompiled, JitCompiled.
type ExecutionMode interface {
	isExecutionMode()
}

// Interpreted runs modules on the in-process interpreter. Modules are always
// instrumented with gas metering and the stack height limiter.
type Interpreted struct{}

// NativeCompiled compiles modules ahead of time and runs the generated code.
// Instrument controls whether gas metering is injected before compilation;
// CacheArtifacts shares compiled artifacts across instances.
type NativeCompiled struct {
	Optimization   OptimizationLevel
	CacheArtifacts bool
	Instrument     bool
}

// JitCompiled compiles modules just in time on a shared compiler engine.
// CacheArtifacts keeps serialized modules in the in-process artifact cache.
type JitCompiled struct {
	CacheArtifacts bool
}

func (Interpreted) isExecutionMode()    {}
func (NativeCompiled) isExecutionMode() {}
func (JitCompiled) isExecutionMode()    {}

// ModeName returns the short name used in logs and the CLI.
func ModeName(mode ExecutionMode) string {
	switch mode.(type) {
	case Interpreted:
		return "interpreted"
	case NativeCompiled:
		return "compiled"
	case JitCompiled:
		return "jit"
	default:
		return fmt.Sprintf("unknown(%T)", mode)
	}
}

func modeInstruments(mode ExecutionMode) bool {
	switch m := mode.(type) {
	case Interpreted:
		return true
	case NativeCompiled:
		return m.Instrument
	default:
		return false
	}
}

func modeCachesArtifacts(mode ExecutionMode) bool {
	switch m := mode.(type) {
	case NativeCompiled:
		return m.CacheArtifacts
	case JitCompiled:
		return m.CacheArtifacts
	default:
		return false
	}
}

// ProtocolVersion identifies the host function surface a module resolves
// against. Only the major component participates in compatibility decisions.
type ProtocolVersion struct {
	Major uint32
	Minor uint32
	Patch uint32
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

const (
	// DefaultMaxMemory is the default linear memory ceiling in 64 KiB pages.
	DefaultMaxMemory = 64

	// DefaultMaxStackHeight is the default limit enforced by the injected
	// stack height limiter.
	DefaultMaxStackHeight = 188
)

// WasmConfig carries everything Preprocess and instantiation need: memory
// and stack ceilings, the cost tables, the execution mode, and the protocol
// version the import resolver serves. Construct it once and treat it as
// immutable; engines copy it at creation time.
type WasmConfig struct {
	OpcodeCosts       OpcodeCosts
	StorageCosts      StorageCosts
	HostFunctionCosts HostFunctionCosts
	Mode              ExecutionMode
	ProtocolVersion   ProtocolVersion

	// MaxMemory caps linear memory in pages. Preprocessing clamps the
	// module's declared maximum to this value.
	MaxMemory uint32

	// MaxStackHeight bounds the logical value stack enforced by the
	// injected limiter.
	MaxStackHeight uint32

	// TestSupport links debug-only host functions (casper_print).
	TestSupport bool
}

// DefaultConfig returns a config with the production cost tables, the
// interpreter mode, and protocol version 1.0.0.
func DefaultConfig() WasmConfig {
	return WasmConfig{
		OpcodeCosts:       DefaultOpcodeCosts(),
		StorageCosts:      DefaultStorageCosts(),
		HostFunctionCosts: DefaultHostFunctionCosts(),
		Mode:              Interpreted{},
		ProtocolVersion:   ProtocolVersion{Major: 1},
		MaxMemory:         DefaultMaxMemory,
		MaxStackHeight:    DefaultMaxStackHeight,
	}
}
