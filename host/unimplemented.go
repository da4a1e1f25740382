package host

import (
	"context"

	"github.com/wippyai/contract-engine/errors"
)

// Unimplemented is a Host whose every function fails with an unsupported
// error. Embed it and override the functions your environment provides.
type Unimplemented struct {
	flag ScopeFlag
}

var _ Host = (*Unimplemented)(nil)

func (u *Unimplemented) Flag() *ScopeFlag { return &u.flag }

func (u *Unimplemented) Gas(ctx context.Context, fc FunctionContext, amount uint32) error {
	return errors.Unsupported("gas")
}

func (u *Unimplemented) Revert(ctx context.Context, fc FunctionContext, status uint32) error {
	return errors.Unsupported("casper_revert")
}

func (u *Unimplemented) Ret(ctx context.Context, fc FunctionContext, valuePtr, valueSize uint32) error {
	return errors.Unsupported("casper_ret")
}

func (u *Unimplemented) ReadValue(ctx context.Context, fc FunctionContext, keyPtr, keySize, outputSizePtr uint32) (int32, error) {
	return 0, errors.Unsupported("casper_read_value")
}

func (u *Unimplemented) Write(ctx context.Context, fc FunctionContext, keyPtr, keySize, valuePtr, valueSize uint32) error {
	return errors.Unsupported("casper_write")
}

func (u *Unimplemented) Add(ctx context.Context, fc FunctionContext, keyPtr, keySize, valuePtr, valueSize uint32) error {
	return errors.Unsupported("casper_add")
}

func (u *Unimplemented) NewURef(ctx context.Context, fc FunctionContext, urefPtr, valuePtr, valueSize uint32) error {
	return errors.Unsupported("casper_new_uref")
}

func (u *Unimplemented) IsValidURef(ctx context.Context, fc FunctionContext, urefPtr, urefSize uint32) (int32, error) {
	return 0, errors.Unsupported("casper_is_valid_uref")
}

func (u *Unimplemented) GetCaller(ctx context.Context, fc FunctionContext, outputSizePtr uint32) (int32, error) {
	return 0, errors.Unsupported("casper_get_caller")
}

func (u *Unimplemented) GetBlocktime(ctx context.Context, fc FunctionContext, destPtr uint32) error {
	return errors.Unsupported("casper_get_blocktime")
}

func (u *Unimplemented) GetPhase(ctx context.Context, fc FunctionContext, destPtr uint32) error {
	return errors.Unsupported("casper_get_phase")
}

func (u *Unimplemented) GetKey(ctx context.Context, fc FunctionContext, namePtr, nameSize, outputPtr, outputSize, bytesWrittenPtr uint32) (int32, error) {
	return 0, errors.Unsupported("casper_get_key")
}

func (u *Unimplemented) HasKey(ctx context.Context, fc FunctionContext, namePtr, nameSize uint32) (int32, error) {
	return 0, errors.Unsupported("casper_has_key")
}

func (u *Unimplemented) PutKey(ctx context.Context, fc FunctionContext, namePtr, nameSize, keyPtr, keySize uint32) error {
	return errors.Unsupported("casper_put_key")
}

func (u *Unimplemented) RemoveKey(ctx context.Context, fc FunctionContext, namePtr, nameSize uint32) error {
	return errors.Unsupported("casper_remove_key")
}

func (u *Unimplemented) GetNamedArgSize(ctx context.Context, fc FunctionContext, namePtr, nameSize, sizePtr uint32) (int32, error) {
	return 0, errors.Unsupported("casper_get_named_arg_size")
}

func (u *Unimplemented) GetNamedArg(ctx context.Context, fc FunctionContext, namePtr, nameSize, outputPtr, outputSize uint32) (int32, error) {
	return 0, errors.Unsupported("casper_get_named_arg")
}

func (u *Unimplemented) ReadHostBuffer(ctx context.Context, fc FunctionContext, destPtr, destSize, bytesWrittenPtr uint32) (int32, error) {
	return 0, errors.Unsupported("casper_read_host_buffer")
}

func (u *Unimplemented) TransferToAccount(ctx context.Context, fc FunctionContext, targetPtr, targetSize, amountPtr, amountSize, idPtr, idSize, resultPtr uint32) (int32, error) {
	return 0, errors.Unsupported("casper_transfer_to_account")
}

func (u *Unimplemented) Blake2b(ctx context.Context, fc FunctionContext, inPtr, inSize, outPtr, outSize uint32) (int32, error) {
	return 0, errors.Unsupported("casper_blake2b")
}

func (u *Unimplemented) Print(ctx context.Context, fc FunctionContext, textPtr, textSize uint32) error {
	return errors.Unsupported("casper_print")
}
