package engine

import (
	"math"

	"github.com/wippyai/contract-engine/wasm"
)

// Default opcode costs, grouped per instruction class.
const (
	DefaultBitCost               uint32 = 300
	DefaultAddCost               uint32 = 210
	DefaultMulCost               uint32 = 240
	DefaultDivCost               uint32 = 320
	DefaultLoadCost              uint32 = 2_500
	DefaultStoreCost             uint32 = 4_700
	DefaultConstCost             uint32 = 110
	DefaultLocalCost             uint32 = 390
	DefaultGlobalCost            uint32 = 390
	DefaultControlFlowCost       uint32 = 440
	DefaultIntegerComparisonCost uint32 = 250
	DefaultConversionCost        uint32 = 420
	DefaultUnreachableCost       uint32 = 270
	DefaultNopCost               uint32 = 200
	DefaultCurrentMemoryCost     uint32 = 290
	DefaultGrowMemoryCost        uint32 = 240_000
)

// OpcodeCosts prices instructions by class. Opcodes with no price (all
// floating point work) are forbidden: InstructionCost returns ok=false and
// the gas injector rejects the module.
type OpcodeCosts struct {
	Bit               uint32
	Add               uint32
	Mul               uint32
	Div               uint32
	Load              uint32
	Store             uint32
	Const             uint32
	Local             uint32
	Global            uint32
	ControlFlow       uint32
	IntegerComparison uint32
	Conversion        uint32
	Unreachable       uint32
	Nop               uint32
	CurrentMemory     uint32
	GrowMemory        uint32
}

// DefaultOpcodeCosts returns the production opcode price table.
func DefaultOpcodeCosts() OpcodeCosts {
	return OpcodeCosts{
		Bit:               DefaultBitCost,
		Add:               DefaultAddCost,
		Mul:               DefaultMulCost,
		Div:               DefaultDivCost,
		Load:              DefaultLoadCost,
		Store:             DefaultStoreCost,
		Const:             DefaultConstCost,
		Local:             DefaultLocalCost,
		Global:            DefaultGlobalCost,
		ControlFlow:       DefaultControlFlowCost,
		IntegerComparison: DefaultIntegerComparisonCost,
		Conversion:        DefaultConversionCost,
		Unreachable:       DefaultUnreachableCost,
		Nop:               DefaultNopCost,
		CurrentMemory:     DefaultCurrentMemoryCost,
		GrowMemory:        DefaultGrowMemoryCost,
	}
}

var _ wasm.GasRules = OpcodeCosts{}

// InstructionCost prices a single opcode. Float loads and stores are priced
// like their integer counterparts; float arithmetic, comparison, conversion
// and reinterpretation have no price and are rejected.
func (c OpcodeCosts) InstructionCost(op byte) (uint32, bool) {
	switch {
	case op == wasm.OpUnreachable:
		return c.Unreachable, true
	case op == wasm.OpNop:
		return c.Nop, true
	case op >= wasm.OpBlock && op <= wasm.OpCallIndirect:
		return c.ControlFlow, true
	case op == wasm.OpDrop || op == wasm.OpSelect:
		return c.ControlFlow, true
	case op >= wasm.OpLocalGet && op <= wasm.OpLocalTee:
		return c.Local, true
	case op == wasm.OpGlobalGet || op == wasm.OpGlobalSet:
		return c.Global, true
	case op >= wasm.OpI32Load && op <= wasm.OpI64Load32U:
		return c.Load, true
	case op >= wasm.OpI32Store && op <= wasm.OpI64Store32:
		return c.Store, true
	case op == wasm.OpMemorySize:
		return c.CurrentMemory, true
	case op == wasm.OpMemoryGrow:
		return c.GrowMemory, true
	case op == wasm.OpI32Const || op == wasm.OpI64Const:
		return c.Const, true
	case op >= wasm.OpI32Eqz && op <= wasm.OpI64GeU:
		return c.IntegerComparison, true
	case op >= wasm.OpI32Clz && op <= wasm.OpI32Popcnt:
		return c.Bit, true
	case op == wasm.OpI32Add || op == wasm.OpI32Sub:
		return c.Add, true
	case op == wasm.OpI32Mul:
		return c.Mul, true
	case op >= wasm.OpI32DivS && op <= wasm.OpI32RemU:
		return c.Div, true
	case op >= wasm.OpI32And && op <= wasm.OpI32Rotr:
		return c.Bit, true
	case op >= wasm.OpI64Clz && op <= wasm.OpI64Popcnt:
		return c.Bit, true
	case op == wasm.OpI64Add || op == wasm.OpI64Sub:
		return c.Add, true
	case op == wasm.OpI64Mul:
		return c.Mul, true
	case op >= wasm.OpI64DivS && op <= wasm.OpI64RemU:
		return c.Div, true
	case op >= wasm.OpI64And && op <= wasm.OpI64Rotr:
		return c.Bit, true
	case op == wasm.OpI32WrapI64 || op == wasm.OpI64ExtendI32S || op == wasm.OpI64ExtendI32U:
		return c.Conversion, true
	default:
		// Everything remaining in the one-byte space is floating point.
		return 0, false
	}
}

// DefaultGasPerByte is the default storage price per written byte.
const DefaultGasPerByte uint32 = 630

// StorageCosts prices storage writes performed through host functions.
type StorageCosts struct {
	// GasPerByte is charged per byte written to global state.
	GasPerByte uint32
}

// DefaultStorageCosts returns the production storage price table.
func DefaultStorageCosts() StorageCosts {
	return StorageCosts{GasPerByte: DefaultGasPerByte}
}

// CalculateGasCost prices writing n bytes, saturating on overflow.
func (c StorageCosts) CalculateGasCost(n uint64) uint64 {
	perByte := uint64(c.GasPerByte)
	if perByte != 0 && n > math.MaxUint64/perByte {
		return math.MaxUint64
	}
	return perByte * n
}

// Default host function costs. Functions without a researched price use
// DefaultFixedCost with zero argument weights.
const (
	DefaultFixedCost uint32 = 200

	defaultAddCost            uint32 = 5_800
	defaultBlocktimeCost      uint32 = 330
	defaultGetCallerCost      uint32 = 380
	defaultGetKeyCost         uint32 = 2_000
	defaultGetKeyNameWeight   uint32 = 440
	defaultGetPhaseCost       uint32 = 710
	defaultHasKeyCost         uint32 = 1_500
	defaultHasKeyNameWeight   uint32 = 840
	defaultIsValidURefCost    uint32 = 760
	defaultNewURefCost        uint32 = 17_000
	defaultNewURefValueWeight uint32 = 590
	defaultPrintCost          uint32 = 20_000
	defaultPrintTextWeight    uint32 = 4_600
	defaultPutKeyCost         uint32 = 38_000
	defaultPutKeyNameWeight   uint32 = 1_100
	defaultReadHostBufferCost uint32 = 3_500
	defaultReadHostBufferDest uint32 = 310
	defaultReadValueCost      uint32 = 6_000
	defaultRemoveKeyCost      uint32 = 61_000
	defaultRemoveKeyNameWt    uint32 = 3_200
	defaultRetCost            uint32 = 23_000
	defaultRetValueWeight     uint32 = 420
	defaultRevertCost         uint32 = 500
	defaultTransferToAcctCost uint32 = 2_500_000_000
	defaultWriteCost          uint32 = 14_000
	defaultWriteValueSizeCost uint32 = 980
)

// HostFunction prices one host function call: a fixed cost plus per-argument
// weights multiplied by the raw argument values. Weight slots beyond the
// argument count are ignored; a zero weight marks an unused argument.
type HostFunction struct {
	Arguments []uint32
	Cost      uint32
}

// Fixed returns a cost with no argument weights.
func Fixed(cost uint32) HostFunction {
	return HostFunction{Cost: cost}
}

// Calculate prices a call with the given raw arguments, saturating at the
// maximum chargeable amount.
func (f HostFunction) Calculate(args []uint32) uint32 {
	total := uint64(f.Cost)
	for i, weight := range f.Arguments {
		if i >= len(args) {
			break
		}
		total += uint64(weight) * uint64(args[i])
		if total > math.MaxUint32 {
			return math.MaxUint32
		}
	}
	return uint32(total)
}

// HostFunctionCosts prices host function calls by import name. The injected
// accounting function "gas" is intentionally absent: charging for the charge
// itself would double-count.
type HostFunctionCosts map[string]HostFunction

// DefaultHostFunctionCosts returns the production host function price table.
func DefaultHostFunctionCosts() HostFunctionCosts {
	return HostFunctionCosts{
		"casper_add":           Fixed(defaultAddCost),
		"casper_blake2b":       Fixed(DefaultFixedCost),
		"casper_get_blocktime": Fixed(defaultBlocktimeCost),
		"casper_get_caller":    Fixed(defaultGetCallerCost),
		"casper_get_key": {
			Cost:      defaultGetKeyCost,
			Arguments: []uint32{0, defaultGetKeyNameWeight, 0, 0, 0},
		},
		"casper_get_named_arg":      Fixed(DefaultFixedCost),
		"casper_get_named_arg_size": Fixed(DefaultFixedCost),
		"casper_get_phase":          Fixed(defaultGetPhaseCost),
		"casper_has_key": {
			Cost:      defaultHasKeyCost,
			Arguments: []uint32{0, defaultHasKeyNameWeight},
		},
		"casper_is_valid_uref": Fixed(defaultIsValidURefCost),
		"casper_new_uref": {
			Cost:      defaultNewURefCost,
			Arguments: []uint32{0, 0, defaultNewURefValueWeight},
		},
		"casper_print": {
			Cost:      defaultPrintCost,
			Arguments: []uint32{0, defaultPrintTextWeight},
		},
		"casper_put_key": {
			Cost:      defaultPutKeyCost,
			Arguments: []uint32{0, defaultPutKeyNameWeight, 0, 0},
		},
		"casper_read_host_buffer": {
			Cost:      defaultReadHostBufferCost,
			Arguments: []uint32{0, defaultReadHostBufferDest, 0},
		},
		"casper_read_value": Fixed(defaultReadValueCost),
		"casper_remove_key": {
			Cost:      defaultRemoveKeyCost,
			Arguments: []uint32{0, defaultRemoveKeyNameWt},
		},
		"casper_ret": {
			Cost:      defaultRetCost,
			Arguments: []uint32{0, defaultRetValueWeight},
		},
		"casper_revert":              Fixed(defaultRevertCost),
		"casper_transfer_to_account": Fixed(defaultTransferToAcctCost),
		"casper_write": {
			Cost:      defaultWriteCost,
			Arguments: []uint32{0, 0, 0, defaultWriteValueSizeCost},
		},
	}
}
