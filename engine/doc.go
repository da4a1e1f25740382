// Package engine executes preprocessed contract WebAssembly on a selection
// of backends behind one API.
//
// # Flow
//
//  1. New(cfg) builds a WasmEngine for cfg.Mode.
//  2. WasmEngine.Preprocess() decodes, validates, instruments, and
//     deterministically re-encodes contract bytes into a Module.
//  3. WasmEngine.InstanceAndMemory() resolves imports against the host
//     function table and links an Instance with fresh linear memory.
//  4. Instance.InvokeExport() type-checks the call, runs it, and translates
//     backend faults into typed errors.
//
// # Execution modes
//
// Interpreted and NativeCompiled run on wazero (interpreter and
// ahead-of-time compiler respectively); JitCompiled runs on wasmtime and is
// only available in cgo builds. Instrumenting modes inject gas metering and
// a stack height limiter before the backend ever sees the module, so gas
// semantics do not depend on the backend.
//
// # Cost model
//
// OpcodeCosts prices instructions by class and has no prices for floating
// point work, which makes float opcodes a preprocessing failure. Host
// function calls are charged through Host.Gas before the function body
// runs, using the HostFunctionCosts table.
//
// # Thread safety
//
// WasmEngine and Module are safe for concurrent use. An Instance is a
// single execution and must not be invoked concurrently.
package engine
