// Package wasm provides WebAssembly binary format parsing, encoding, and
// deterministic instrumentation for contract code.
//
// Only the WebAssembly MVP instruction set is accepted: core value types
// (i32, i64, f32, f64), a single table and a single memory, and the original
// control flow, call, memory, and numeric instructions. Prefixed and
// post-MVP opcodes are rejected at decode time, which makes parsing itself a
// validation step for deployed code.
//
// # Parsing and encoding
//
// Parse a WebAssembly module from binary:
//
//	module, err := wasm.ParseModule(data)
//
// Parse with structural validation:
//
//	module, err := wasm.ParseModuleValidate(data)
//
// Encode back to binary:
//
//	encoded := module.Encode()
//
// Encoding is deterministic: equal modules produce identical bytes, so a
// preprocessed module can be hashed and cached.
//
// # Limits
//
// CheckLimits enforces the size bounds applied to deployed contract code
// (table size, global count, parameter count, br_table size):
//
//	err := module.CheckLimits(wasm.DefaultValidationLimits)
//
// # Instrumentation
//
// InjectGasCounter rewrites function bodies to charge accumulated
// per-instruction costs through an imported accounting function.
// InjectStackLimiter bounds call depth with a counter global that traps
// past the configured height. Both rewrites are deterministic.
package wasm
