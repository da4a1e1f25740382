package engine

import (
	"fmt"

	"github.com/wippyai/contract-engine/errors"
	"github.com/wippyai/contract-engine/host"
	"github.com/wippyai/contract-engine/wasm"
)

const hostModuleName = "env"

// supportedProtocolMajor is the only host function surface this build knows.
const supportedProtocolMajor = 1

type importKey struct {
	module string
	name   string
}

// Resolver maps (module, name) import pairs to host function table entries
// for one protocol version. Imports it cannot resolve are hard failures:
// there are no trap stubs.
type Resolver struct {
	funcs map[importKey]host.Function
}

// NewResolver builds the import table for the given protocol version. Test
// only functions are included when cfg.TestSupport is set.
func NewResolver(version ProtocolVersion, cfg WasmConfig) (*Resolver, error) {
	if version.Major != supportedProtocolMajor {
		return nil, errors.InvalidInput(errors.PhaseResolve,
			fmt.Sprintf("unsupported protocol version %s", version))
	}

	funcs := make(map[importKey]host.Function)
	for _, fn := range host.Functions() {
		if fn.TestOnly && !cfg.TestSupport {
			continue
		}
		funcs[importKey{module: hostModuleName, name: fn.Name}] = fn
	}
	return &Resolver{funcs: funcs}, nil
}

// Resolve returns the host function behind an import.
func (r *Resolver) Resolve(module, name string) (host.Function, error) {
	fn, ok := r.funcs[importKey{module: module, name: name}]
	if !ok {
		return host.Function{}, errors.UnknownImport(module, name)
	}
	return fn, nil
}

// CheckImports resolves every function import of a decoded module and
// verifies the declared signature against the table entry. Memory, table
// and global imports are rejected: instances own their state.
func (r *Resolver) CheckImports(m *wasm.Module) error {
	for _, imp := range m.Imports {
		if imp.Desc.Kind != wasm.KindFunc {
			return errors.UnknownImport(imp.Module, imp.Name)
		}
		fn, err := r.Resolve(imp.Module, imp.Name)
		if err != nil {
			return err
		}
		ft := moduleTypeAt(m, imp.Desc.TypeIdx)
		if ft == nil {
			return errors.InvalidBinary(fmt.Sprintf("import %s.%s references missing type %d",
				imp.Module, imp.Name, imp.Desc.TypeIdx), nil)
		}
		if !typesEqual(ft.Params, fn.Params) || !typesEqual(ft.Results, fn.Results) {
			return errors.SignatureMismatch(imp.Name,
				fmt.Sprintf("declared (%d params, %d results), host provides (%d params, %d results)",
					len(ft.Params), len(ft.Results), len(fn.Params), len(fn.Results)))
		}
	}
	return nil
}

func moduleTypeAt(m *wasm.Module, typeIdx uint32) *wasm.FuncType {
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

func typesEqual(a, b []wasm.ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
