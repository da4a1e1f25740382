package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the execution pipeline the error occurred
type Phase string

const (
	PhasePreprocess  Phase = "preprocess"  // decode, validate, instrument
	PhaseResolve     Phase = "resolve"     // import resolution
	PhaseInstantiate Phase = "instantiate" // backend instantiation
	PhaseRuntime     Phase = "runtime"     // guest execution
	PhaseHost        Phase = "host"        // host function dispatch
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidBinary     Kind = "invalid_binary"
	KindDeserialize       Kind = "deserialize"
	KindForbiddenOpcode   Kind = "forbidden_opcode"
	KindStartSection      Kind = "start_section"
	KindMissingMemory     Kind = "missing_memory"
	KindLimitExceeded     Kind = "limit_exceeded"
	KindReservedImport    Kind = "reserved_import"
	KindUnknownImport     Kind = "unknown_import"
	KindMemoryMismatch    Kind = "memory_mismatch"
	KindExportNotFound    Kind = "export_not_found"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindTrap              Kind = "trap"
	KindGasExhausted      Kind = "gas_exhausted"
	KindStackOverflow     Kind = "stack_overflow"
	KindMemoryAccess      Kind = "memory_access"
	KindUnsupported       Kind = "unsupported"
	KindInvalidInput      Kind = "invalid_input"
	KindInstanceState     Kind = "instance_state"
	KindBackend           Kind = "backend"
	KindCache             Kind = "cache"
)

// Error is the structured error type used throughout the engine
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches on Phase and Kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path, e.g. section and index
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidBinary creates a malformed-module error
func InvalidBinary(detail string, cause error) *Error {
	return &Error{
		Phase:  PhasePreprocess,
		Kind:   KindInvalidBinary,
		Detail: detail,
		Cause:  cause,
	}
}

// ForbiddenOpcode creates an error for an instruction the cost table rejects
func ForbiddenOpcode(opcode byte, funcIndex uint32) *Error {
	return &Error{
		Phase:  PhasePreprocess,
		Kind:   KindForbiddenOpcode,
		Path:   []string{"code", fmt.Sprintf("func[%d]", funcIndex)},
		Detail: fmt.Sprintf("opcode 0x%02x not allowed", opcode),
		Value:  opcode,
	}
}

// LimitExceeded creates an error for a module exceeding a preprocessing limit
func LimitExceeded(what string, got, max int) *Error {
	return &Error{
		Phase:  PhasePreprocess,
		Kind:   KindLimitExceeded,
		Detail: fmt.Sprintf("%s %d exceeds limit %d", what, got, max),
		Value:  got,
	}
}

// ReservedImport creates an error for an import of an engine-internal name
func ReservedImport(module, name string) *Error {
	return &Error{
		Phase:  PhasePreprocess,
		Kind:   KindReservedImport,
		Detail: fmt.Sprintf("import %s.%s is reserved", module, name),
	}
}

// UnknownImport creates a hard resolution failure for an unrecognized import
func UnknownImport(module, name string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnknownImport,
		Detail: fmt.Sprintf("no host export for %s.%s", module, name),
	}
}

// MemoryMismatch creates an error for memory limits incompatible with config
func MemoryMismatch(declaredMax, allowedMax uint32) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindMemoryMismatch,
		Detail: fmt.Sprintf("declared max %d pages exceeds allowed %d", declaredMax, allowedMax),
	}
}

// ExportNotFound creates an error for a missing exported function
func ExportNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindExportNotFound,
		Detail: fmt.Sprintf("export %q not found", name),
	}
}

// SignatureMismatch creates an error for an export invoked with wrong arity or types
func SignatureMismatch(name, detail string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindSignatureMismatch,
		Path:   []string{name},
		Detail: detail,
	}
}

// Trap wraps a backend fault raised during guest execution
func Trap(cause error) *Error {
	return &Error{
		Phase: PhaseRuntime,
		Kind:  KindTrap,
		Cause: cause,
	}
}

// GasExhausted creates an out-of-gas error
func GasExhausted() *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindGasExhausted,
		Detail: "gas limit exceeded",
	}
}

// StackOverflow creates a stack-height limit error
func StackOverflow(limit uint32) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindStackOverflow,
		Detail: fmt.Sprintf("stack height limit %d exceeded", limit),
	}
}

// MemoryAccess creates an out-of-bounds linear memory access error
func MemoryAccess(offset uint32, length, size int) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindMemoryAccess,
		Detail: fmt.Sprintf("access at offset %d length %d outside memory of %d bytes", offset, length, size),
		Value:  offset,
	}
}

// Unsupported creates an error for a host function the Host does not provide
func Unsupported(function string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindUnsupported,
		Detail: fmt.Sprintf("%s is not supported", function),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InstanceState creates an error for invoking a finished or trapped instance
func InstanceState(state string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstanceState,
		Detail: fmt.Sprintf("instance is %s and cannot be invoked", state),
	}
}

// Backend wraps a backend construction or registration failure
func Backend(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBackend,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
