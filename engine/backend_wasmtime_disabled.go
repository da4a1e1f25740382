//go:build !cgo

package engine

import (
	"github.com/wippyai/contract-engine/errors"
)

// The JIT backend binds wasmtime through cgo. Builds without cgo can still
// use the wazero-backed modes.
func newWasmtimeBackend(cfg WasmConfig) (backend, error) {
	return nil, errors.New(errors.PhasePreprocess, errors.KindUnsupported).
		Detail("jit execution mode requires a cgo build").Build()
}
