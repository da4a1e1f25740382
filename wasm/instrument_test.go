package wasm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wippyai/contract-engine/wasm"
)

// flatRules charges one unit per instruction and forbids float arithmetic.
type flatRules struct{}

func (flatRules) InstructionCost(op byte) (uint32, bool) {
	if op >= wasm.OpF32Abs && op <= wasm.OpF64Copysign {
		return 0, false
	}
	return 1, true
}

func TestInjectGasCounter(t *testing.T) {
	m := buildCallModule()
	if err := wasm.InjectGasCounter(m, flatRules{}, "env", "gas"); err != nil {
		t.Fatalf("InjectGasCounter: %v", err)
	}

	// gas import appended after the existing function import
	if len(m.Imports) != 2 {
		t.Fatalf("imports: got %d, want 2", len(m.Imports))
	}
	gas := m.Imports[1]
	if gas.Module != "env" || gas.Name != "gas" || gas.Desc.Kind != wasm.KindFunc {
		t.Fatalf("gas import: %+v", gas)
	}
	ft := m.GetFuncType(1)
	if ft == nil || len(ft.Params) != 1 || ft.Params[0] != wasm.ValI32 || len(ft.Results) != 0 {
		t.Errorf("gas signature: %+v", ft)
	}

	// declared functions shifted past the new import
	if idx, _ := m.ExportedFunc("call"); idx != 3 {
		t.Errorf("export index: got %d, want 3", idx)
	}

	// entry body now charges before executing and calls the shifted add
	instrs, err := wasm.DecodeInstructions(m.Code[1].Code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if instrs[0].Opcode != wasm.OpI32Const || instrs[1].Opcode != wasm.OpCall {
		t.Fatalf("body does not start with a gas charge: %+v", instrs[:2])
	}
	if imm := instrs[1].Imm.(wasm.CallImm); imm.FuncIdx != 1 {
		t.Errorf("charge calls function %d, want gas at 1", imm.FuncIdx)
	}
	if cost := instrs[0].Imm.(wasm.I32Imm).Value; cost != 4 {
		t.Errorf("entry charge: got %d, want 4", cost)
	}
	var callsAdd bool
	for _, instr := range instrs[2:] {
		if target, ok := instr.GetCallTarget(); ok && target == 2 {
			callsAdd = true
		}
	}
	if !callsAdd {
		t.Error("call target was not shifted to 2")
	}

	if err := m.Validate(); err != nil {
		t.Errorf("instrumented module invalid: %v", err)
	}
}

func TestInjectGasCounterDeterministic(t *testing.T) {
	a := buildCallModule()
	b := buildCallModule()
	if err := wasm.InjectGasCounter(a, flatRules{}, "env", "gas"); err != nil {
		t.Fatal(err)
	}
	if err := wasm.InjectGasCounter(b, flatRules{}, "env", "gas"); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Encode(), b.Encode()) {
		t.Error("instrumentation output differs across runs")
	}
}

func TestInjectGasCounterChargesPerBranch(t *testing.T) {
	m := buildCallModule()
	// if/else: each arm must carry its own charge
	m.Types = append(m.Types, wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}})
	m.Funcs = append(m.Funcs, 3)
	m.Code = append(m.Code, wasm.FuncBody{Code: wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: byte(wasm.ValI32)}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		{Opcode: wasm.OpElse},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 2}},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpEnd},
	})})

	if err := wasm.InjectGasCounter(m, flatRules{}, "env", "gas"); err != nil {
		t.Fatalf("InjectGasCounter: %v", err)
	}

	instrs, err := wasm.DecodeInstructions(m.Code[2].Code)
	if err != nil {
		t.Fatal(err)
	}
	var charges int
	for _, instr := range instrs {
		if target, ok := instr.GetCallTarget(); ok && target == 1 {
			charges++
		}
	}
	if charges < 3 {
		t.Errorf("expected a charge per branch arm, got %d charge sites", charges)
	}
}

func TestInjectGasCounterForbiddenOpcode(t *testing.T) {
	m := buildCallModule()
	m.Code[0].Code = wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpF32Add},
		{Opcode: wasm.OpEnd},
	})

	err := wasm.InjectGasCounter(m, flatRules{}, "env", "gas")
	var forbidden *wasm.ForbiddenOpcodeError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenOpcodeError, got %v", err)
	}
	if forbidden.Opcode != wasm.OpF32Add {
		t.Errorf("Opcode: got 0x%02x, want f32.add", forbidden.Opcode)
	}
}

func TestInjectStackLimiter(t *testing.T) {
	m := buildCallModule()
	if err := wasm.InjectStackLimiter(m, 1024); err != nil {
		t.Fatalf("InjectStackLimiter: %v", err)
	}

	if len(m.Globals) != 1 {
		t.Fatalf("globals: got %d, want 1", len(m.Globals))
	}
	g := m.Globals[0]
	if g.Type.ValType != wasm.ValI32 || !g.Type.Mutable {
		t.Errorf("counter global: %+v", g.Type)
	}

	instrs, err := wasm.DecodeInstructions(m.Code[0].Code)
	if err != nil {
		t.Fatal(err)
	}
	if instrs[0].Opcode != wasm.OpGlobalGet {
		t.Errorf("body does not start with frame charge: %+v", instrs[0])
	}
	var hasTrap bool
	for _, instr := range instrs {
		if instr.Opcode == wasm.OpUnreachable {
			hasTrap = true
		}
	}
	if !hasTrap {
		t.Error("limiter prologue has no trap")
	}
	// body wrapped in a block typed like the function's result
	if instrs[10].Opcode != wasm.OpBlock {
		t.Errorf("charge is not followed by the wrapping block: %+v", instrs[10])
	} else if bt := instrs[10].Imm.(wasm.BlockImm).Type; bt != byte(wasm.ValI32) {
		t.Errorf("wrapping block type: got 0x%02x, want i32", bt)
	}

	// counter released before the final end
	last := instrs[len(instrs)-1]
	if last.Opcode != wasm.OpEnd {
		t.Fatalf("body does not end with end: %+v", last)
	}
	if instrs[len(instrs)-2].Opcode != wasm.OpGlobalSet {
		t.Errorf("release missing before final end: %+v", instrs[len(instrs)-5:])
	}

	if err := m.Validate(); err != nil {
		t.Errorf("instrumented module invalid: %v", err)
	}
}

func TestInjectStackLimiterBranchExit(t *testing.T) {
	// A function that leaves through a branch to the function-level label
	// must still release its frame charge.
	m := buildCallModule()
	m.Types = append(m.Types, wasm.FuncType{})
	m.Funcs = append(m.Funcs, 3)
	m.Code = append(m.Code, wasm.FuncBody{Code: wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
		{Opcode: wasm.OpEnd},
	})})

	if err := wasm.InjectStackLimiter(m, 64); err != nil {
		t.Fatalf("InjectStackLimiter: %v", err)
	}

	instrs, err := wasm.DecodeInstructions(m.Code[2].Code)
	if err != nil {
		t.Fatal(err)
	}
	var blocks int
	for _, instr := range instrs {
		if instr.Opcode == wasm.OpBlock {
			blocks++
		}
	}
	if blocks == 0 {
		t.Fatal("body is not wrapped in a block")
	}

	// The branch lands on the wrapping block's end; the release runs after
	// it and before the function's own end.
	n := len(instrs)
	if instrs[n-1].Opcode != wasm.OpEnd ||
		instrs[n-2].Opcode != wasm.OpGlobalSet ||
		instrs[n-5].Opcode != wasm.OpGlobalGet ||
		instrs[n-6].Opcode != wasm.OpEnd {
		t.Fatalf("release is not between the block end and the function end: %+v", instrs[n-6:])
	}

	if err := m.Validate(); err != nil {
		t.Errorf("instrumented module invalid: %v", err)
	}
}
