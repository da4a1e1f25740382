package host

import (
	"context"
)

// FunctionContext gives a host function bounds-checked access to the calling
// instance's linear memory. Implementations are backend-specific; the host
// logic itself never sees backend types.
type FunctionContext interface {
	// MemoryRead copies size bytes starting at offset out of linear memory.
	MemoryRead(offset, size uint32) ([]byte, error)

	// MemoryWrite copies data into linear memory starting at offset.
	MemoryWrite(offset uint32, data []byte) error
}

// Host is the set of functions contract code can import from the "env"
// namespace. Arguments follow the pointer/length convention: guest code
// passes offsets into its own linear memory and the host reads or writes
// through the FunctionContext.
//
// Embed Unimplemented to get a Host where every function reports itself as
// not supported, then override what the execution environment provides.
type Host interface {
	// Flag returns the execution scope flag shared with the engine.
	Flag() *ScopeFlag

	// Gas charges accumulated execution cost. Instrumented code calls this
	// through the injected accounting import; the engine also routes every
	// host function's declared cost through it.
	Gas(ctx context.Context, fc FunctionContext, amount uint32) error

	// Revert terminates execution with a user status code.
	Revert(ctx context.Context, fc FunctionContext, status uint32) error

	// Ret terminates execution successfully, returning the value at
	// valuePtr/valueSize to the caller.
	Ret(ctx context.Context, fc FunctionContext, valuePtr, valueSize uint32) error

	// ReadValue reads the stored value under the key at keyPtr/keySize into
	// the host buffer and writes its size to outputSizePtr.
	ReadValue(ctx context.Context, fc FunctionContext, keyPtr, keySize, outputSizePtr uint32) (int32, error)

	// Write stores the value at valuePtr/valueSize under the key at
	// keyPtr/keySize.
	Write(ctx context.Context, fc FunctionContext, keyPtr, keySize, valuePtr, valueSize uint32) error

	// Add atomically adds the value at valuePtr/valueSize to the stored
	// value under the key at keyPtr/keySize.
	Add(ctx context.Context, fc FunctionContext, keyPtr, keySize, valuePtr, valueSize uint32) error

	// NewURef creates a new unforgeable reference initialized with the value
	// at valuePtr/valueSize and writes its serialized form to urefPtr.
	NewURef(ctx context.Context, fc FunctionContext, urefPtr, valuePtr, valueSize uint32) error

	// IsValidURef reports whether the uref at urefPtr/urefSize carries
	// access rights in the current context. Nonzero means valid.
	IsValidURef(ctx context.Context, fc FunctionContext, urefPtr, urefSize uint32) (int32, error)

	// GetCaller stores the calling account's serialized public key in the
	// host buffer and writes its size to outputSizePtr.
	GetCaller(ctx context.Context, fc FunctionContext, outputSizePtr uint32) (int32, error)

	// GetBlocktime writes the serialized block timestamp to destPtr.
	GetBlocktime(ctx context.Context, fc FunctionContext, destPtr uint32) error

	// GetPhase writes the serialized execution phase to destPtr.
	GetPhase(ctx context.Context, fc FunctionContext, destPtr uint32) error

	// GetKey looks up the named key at namePtr/nameSize, writes it to
	// outputPtr (capacity outputSize) and the written size to bytesWrittenPtr.
	GetKey(ctx context.Context, fc FunctionContext, namePtr, nameSize, outputPtr, outputSize, bytesWrittenPtr uint32) (int32, error)

	// HasKey reports whether a named key exists. Zero means present.
	HasKey(ctx context.Context, fc FunctionContext, namePtr, nameSize uint32) (int32, error)

	// PutKey associates the key at keyPtr/keySize with the name at
	// namePtr/nameSize.
	PutKey(ctx context.Context, fc FunctionContext, namePtr, nameSize, keyPtr, keySize uint32) error

	// RemoveKey deletes the named key at namePtr/nameSize.
	RemoveKey(ctx context.Context, fc FunctionContext, namePtr, nameSize uint32) error

	// GetNamedArgSize writes the size of the named runtime argument to
	// sizePtr.
	GetNamedArgSize(ctx context.Context, fc FunctionContext, namePtr, nameSize, sizePtr uint32) (int32, error)

	// GetNamedArg copies the named runtime argument into outputPtr
	// (capacity outputSize).
	GetNamedArg(ctx context.Context, fc FunctionContext, namePtr, nameSize, outputPtr, outputSize uint32) (int32, error)

	// ReadHostBuffer drains the host buffer into destPtr (capacity destSize)
	// and writes the copied size to bytesWrittenPtr.
	ReadHostBuffer(ctx context.Context, fc FunctionContext, destPtr, destSize, bytesWrittenPtr uint32) (int32, error)

	// TransferToAccount transfers motes to the account at targetPtr and
	// writes the serialized transfer result to resultPtr.
	TransferToAccount(ctx context.Context, fc FunctionContext, targetPtr, targetSize, amountPtr, amountSize, idPtr, idSize, resultPtr uint32) (int32, error)

	// Blake2b hashes inPtr/inSize and writes the digest to outPtr
	// (capacity outSize).
	Blake2b(ctx context.Context, fc FunctionContext, inPtr, inSize, outPtr, outSize uint32) (int32, error)

	// Print writes the UTF-8 text at textPtr/textSize to the host's debug
	// sink. Only linked when test support is enabled.
	Print(ctx context.Context, fc FunctionContext, textPtr, textSize uint32) error
}
