// Package errors provides structured error types for the contract engine.
//
// Errors are categorized by Phase (where in the pipeline the error occurred)
// and Kind (error category). The Error type includes a location path, an
// offending value, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePreprocess, errors.KindLimitExceeded).
//		Path("table", "0").
//		Detail("initial size %d exceeds %d", got, max).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownImport("env", "casper_write")
//	err := errors.MemoryAccess(offset, length, size)
//
// Two dedicated types sit outside the Phase/Kind taxonomy: Revert, a
// deliberate guest-requested termination with a status code, and HostError,
// which carries a typed host failure across a backend trap boundary.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
