package host

import (
	"context"

	"github.com/wippyai/contract-engine/wasm"
)

// InvokeFunc adapts a Host method to the raw calling convention backends
// share: arguments arrive as zero-extended uint64 stack values and a single
// i32 result, when declared, is returned the same way.
type InvokeFunc func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error)

// Function describes one importable host function: its wire signature, the
// adapter that invokes it, and whether it is only available with test
// support enabled.
type Function struct {
	Invoke   InvokeFunc
	Name     string
	Params   []wasm.ValType
	Results  []wasm.ValType
	TestOnly bool
}

func arg(args []uint64, i int) uint32 {
	return uint32(args[i])
}

func status(s int32) uint64 {
	return uint64(uint32(s))
}

var i32 = wasm.ValI32

// Functions returns the host function table in name order. All functions
// live in the "env" import namespace.
func Functions() []Function {
	return []Function{
		{
			Name:   "casper_add",
			Params: []wasm.ValType{i32, i32, i32, i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.Add(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3))
			},
		},
		{
			Name:    "casper_blake2b",
			Params:  []wasm.ValType{i32, i32, i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.Blake2b(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3))
				return status(s), err
			},
		},
		{
			Name:   "casper_get_blocktime",
			Params: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.GetBlocktime(ctx, fc, arg(args, 0))
			},
		},
		{
			Name:    "casper_get_caller",
			Params:  []wasm.ValType{i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.GetCaller(ctx, fc, arg(args, 0))
				return status(s), err
			},
		},
		{
			Name:    "casper_get_key",
			Params:  []wasm.ValType{i32, i32, i32, i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.GetKey(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3), arg(args, 4))
				return status(s), err
			},
		},
		{
			Name:    "casper_get_named_arg",
			Params:  []wasm.ValType{i32, i32, i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.GetNamedArg(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3))
				return status(s), err
			},
		},
		{
			Name:    "casper_get_named_arg_size",
			Params:  []wasm.ValType{i32, i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.GetNamedArgSize(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2))
				return status(s), err
			},
		},
		{
			Name:   "casper_get_phase",
			Params: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.GetPhase(ctx, fc, arg(args, 0))
			},
		},
		{
			Name:    "casper_has_key",
			Params:  []wasm.ValType{i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.HasKey(ctx, fc, arg(args, 0), arg(args, 1))
				return status(s), err
			},
		},
		{
			Name:    "casper_is_valid_uref",
			Params:  []wasm.ValType{i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.IsValidURef(ctx, fc, arg(args, 0), arg(args, 1))
				return status(s), err
			},
		},
		{
			Name:   "casper_new_uref",
			Params: []wasm.ValType{i32, i32, i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.NewURef(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2))
			},
		},
		{
			Name:     "casper_print",
			Params:   []wasm.ValType{i32, i32},
			TestOnly: true,
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.Print(ctx, fc, arg(args, 0), arg(args, 1))
			},
		},
		{
			Name:   "casper_put_key",
			Params: []wasm.ValType{i32, i32, i32, i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.PutKey(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3))
			},
		},
		{
			Name:    "casper_read_host_buffer",
			Params:  []wasm.ValType{i32, i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.ReadHostBuffer(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2))
				return status(s), err
			},
		},
		{
			Name:    "casper_read_value",
			Params:  []wasm.ValType{i32, i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.ReadValue(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2))
				return status(s), err
			},
		},
		{
			Name:   "casper_remove_key",
			Params: []wasm.ValType{i32, i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.RemoveKey(ctx, fc, arg(args, 0), arg(args, 1))
			},
		},
		{
			Name:   "casper_ret",
			Params: []wasm.ValType{i32, i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.Ret(ctx, fc, arg(args, 0), arg(args, 1))
			},
		},
		{
			Name:   "casper_revert",
			Params: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.Revert(ctx, fc, arg(args, 0))
			},
		},
		{
			Name:    "casper_transfer_to_account",
			Params:  []wasm.ValType{i32, i32, i32, i32, i32, i32, i32},
			Results: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				s, err := h.TransferToAccount(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3), arg(args, 4), arg(args, 5), arg(args, 6))
				return status(s), err
			},
		},
		{
			Name:   "casper_write",
			Params: []wasm.ValType{i32, i32, i32, i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.Write(ctx, fc, arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3))
			},
		},
		{
			Name:   "gas",
			Params: []wasm.ValType{i32},
			Invoke: func(ctx context.Context, h Host, fc FunctionContext, args []uint64) (uint64, error) {
				return 0, h.Gas(ctx, fc, arg(args, 0))
			},
		},
	}
}

// Lookup returns the table entry for name.
func Lookup(name string) (Function, bool) {
	for _, fn := range Functions() {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}
