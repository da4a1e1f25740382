package engine

import (
	"github.com/wippyai/contract-engine/wasm"
)

// ExportedFunction describes one callable export of a preprocessed module.
type ExportedFunction struct {
	Name    string
	Params  []wasm.ValType
	Results []wasm.ValType
}

// Module is the result of Preprocess: the instrumented, deterministically
// re-encoded module plus whatever the backend prepared ahead of time. A
// Module is immutable and safe to instantiate concurrently.
type Module struct {
	engine   *WasmEngine
	original []byte
	encoded  []byte
	decoded  *wasm.Module

	// artifact holds the backend's prepared form: a wazero CompiledModule
	// or a wasmtime module handle. Nil for backends that compile lazily.
	artifact any
}

// Bytes returns the instrumented module bytes. Preprocessing the same input
// with the same config yields identical bytes.
func (m *Module) Bytes() []byte {
	out := make([]byte, len(m.encoded))
	copy(out, m.encoded)
	return out
}

// OriginalBytes returns the input bytes Preprocess was called with.
func (m *Module) OriginalBytes() []byte {
	out := make([]byte, len(m.original))
	copy(out, m.original)
	return out
}

// Exports lists the module's exported functions so callers can validate an
// entry point before paying for instantiation.
func (m *Module) Exports() []ExportedFunction {
	var out []ExportedFunction
	for _, exp := range m.decoded.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		ft := m.decoded.GetFuncType(exp.Idx)
		if ft == nil {
			continue
		}
		out = append(out, ExportedFunction{
			Name:    exp.Name,
			Params:  ft.Params,
			Results: ft.Results,
		})
	}
	return out
}
