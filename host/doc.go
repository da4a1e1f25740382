// Package host defines the contract between executing WebAssembly code and
// its blockchain environment.
//
// The Host interface enumerates every function a contract can import from
// the "env" namespace; Unimplemented is an embeddable base that rejects all
// of them. Functions() exposes the same surface declaratively so execution
// backends can register imports without knowing individual signatures.
//
// Host functions never touch backend types. They receive a FunctionContext
// for bounds-checked linear memory access, and the engine tracks host
// execution depth through a shared ScopeFlag so storage layers can tell
// host-initiated reads apart from external ones.
package host
