package engine_test

import (
	"math"
	"testing"

	"github.com/wippyai/contract-engine/engine"
	"github.com/wippyai/contract-engine/wasm"
)

func TestInstructionCost(t *testing.T) {
	costs := engine.DefaultOpcodeCosts()

	cases := []struct {
		name string
		op   byte
		want uint32
	}{
		{"i32.add", wasm.OpI32Add, engine.DefaultAddCost},
		{"i64.mul", wasm.OpI64Mul, engine.DefaultMulCost},
		{"i32.div_s", wasm.OpI32DivS, engine.DefaultDivCost},
		{"i32.xor", wasm.OpI32Xor, engine.DefaultBitCost},
		{"i32.const", wasm.OpI32Const, engine.DefaultConstCost},
		{"i32.load", wasm.OpI32Load, engine.DefaultLoadCost},
		{"f64.load", wasm.OpF64Load, engine.DefaultLoadCost},
		{"i64.store", wasm.OpI64Store, engine.DefaultStoreCost},
		{"local.get", wasm.OpLocalGet, engine.DefaultLocalCost},
		{"global.set", wasm.OpGlobalSet, engine.DefaultGlobalCost},
		{"br_if", wasm.OpBrIf, engine.DefaultControlFlowCost},
		{"i32.lt_s", wasm.OpI32LtS, engine.DefaultIntegerComparisonCost},
		{"i32.wrap_i64", wasm.OpI32WrapI64, engine.DefaultConversionCost},
		{"unreachable", wasm.OpUnreachable, engine.DefaultUnreachableCost},
		{"nop", wasm.OpNop, engine.DefaultNopCost},
		{"memory.grow", wasm.OpMemoryGrow, engine.DefaultGrowMemoryCost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := costs.InstructionCost(tc.op)
			if !ok {
				t.Fatalf("opcode 0x%02x priced as forbidden", tc.op)
			}
			if got != tc.want {
				t.Errorf("cost = %d, want %d", got, tc.want)
			}
		})
	}

	for _, op := range []byte{wasm.OpF32Add, wasm.OpF64Div, wasm.OpF32Const, wasm.OpF32Eq} {
		if _, ok := costs.InstructionCost(op); ok {
			t.Errorf("float opcode 0x%02x has a price", op)
		}
	}
}

func TestHostFunctionCalculate(t *testing.T) {
	fn := engine.HostFunction{Cost: 100, Arguments: []uint32{0, 10, 0}}

	if got := fn.Calculate([]uint32{5, 7, 9}); got != 170 {
		t.Errorf("Calculate = %d, want 170", got)
	}
	// Missing weights count as zero.
	if got := fn.Calculate(nil); got != 100 {
		t.Errorf("Calculate with no args = %d, want 100", got)
	}

	sat := engine.HostFunction{Cost: math.MaxUint32, Arguments: []uint32{math.MaxUint32}}
	if got := sat.Calculate([]uint32{2}); got != math.MaxUint32 {
		t.Errorf("saturating Calculate = %d, want MaxUint32", got)
	}
}

func TestStorageCost(t *testing.T) {
	costs := engine.DefaultStorageCosts()
	if got := costs.CalculateGasCost(10); got != 10*uint64(engine.DefaultGasPerByte) {
		t.Errorf("CalculateGasCost(10) = %d", got)
	}
}

func TestDefaultHostFunctionCosts(t *testing.T) {
	costs := engine.DefaultHostFunctionCosts()

	// The accounting function itself carries no charge.
	if _, ok := costs["gas"]; ok {
		t.Error("gas must not appear in the host cost table")
	}
	if costs["casper_revert"].Cost != 500 {
		t.Errorf("casper_revert fixed cost = %d, want 500", costs["casper_revert"].Cost)
	}
	if costs["casper_transfer_to_account"].Cost != 2_500_000_000 {
		t.Errorf("casper_transfer_to_account fixed cost = %d", costs["casper_transfer_to_account"].Cost)
	}
}
