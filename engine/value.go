package engine

import (
	"fmt"
	"math"

	"github.com/wippyai/contract-engine/wasm"
)

// Value is one wasm stack value with its type tag. The zero Value is not
// valid; construct values with I32, I64, F32 or F64.
type Value struct {
	bits uint64
	typ  wasm.ValType
}

// I32 returns an i32 value.
func I32(v int32) Value {
	return Value{typ: wasm.ValI32, bits: uint64(uint32(v))}
}

// I64 returns an i64 value.
func I64(v int64) Value {
	return Value{typ: wasm.ValI64, bits: uint64(v)}
}

// F32 returns an f32 value.
func F32(v float32) Value {
	return Value{typ: wasm.ValF32, bits: uint64(math.Float32bits(v))}
}

// F64 returns an f64 value.
func F64(v float64) Value {
	return Value{typ: wasm.ValF64, bits: math.Float64bits(v)}
}

// Type returns the value's type tag.
func (v Value) Type() wasm.ValType { return v.typ }

// I32 returns the value as an i32. The type tag is not checked.
func (v Value) I32() int32 { return int32(uint32(v.bits)) }

// I64 returns the value as an i64. The type tag is not checked.
func (v Value) I64() int64 { return int64(v.bits) }

// F32 returns the value as an f32. The type tag is not checked.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.bits)) }

// F64 returns the value as an f64. The type tag is not checked.
func (v Value) F64() float64 { return math.Float64frombits(v.bits) }

// Raw returns the value's stack representation: zero-extended for i32/f32.
func (v Value) Raw() uint64 { return v.bits }

func valueFromRaw(t wasm.ValType, raw uint64) Value {
	if t == wasm.ValI32 || t == wasm.ValF32 {
		raw = uint64(uint32(raw))
	}
	return Value{typ: t, bits: raw}
}

func (v Value) String() string {
	switch v.typ {
	case wasm.ValI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case wasm.ValI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case wasm.ValF32:
		return fmt.Sprintf("f32:%g", v.F32())
	case wasm.ValF64:
		return fmt.Sprintf("f64:%g", v.F64())
	default:
		return fmt.Sprintf("invalid:%#x", v.bits)
	}
}
