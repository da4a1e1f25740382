package wasm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/wippyai/contract-engine/wasm"
)

// buildCallModule returns a module with an imported function, one internal
// helper, and an exported entry that calls both.
func buildCallModule() *wasm.Module {
	max := uint32(4)
	return &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}},
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
			{Results: []wasm.ValType{wasm.ValI32}},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "casper_revert", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
		Funcs: []uint32{1, 2},
		Memories: []wasm.MemoryType{
			{Limits: wasm.Limits{Min: 1, Max: &max}},
		},
		Exports: []wasm.Export{
			{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
			{Name: "call", Kind: wasm.KindFunc, Idx: 2},
		},
		Code: []wasm.FuncBody{
			// add(a, b) -> a + b
			{Code: wasm.EncodeInstructions([]wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpEnd},
			})},
			// call() -> add(40, 2)
			{Code: wasm.EncodeInstructions([]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 40}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 2}},
				{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 1}},
				{Opcode: wasm.OpEnd},
			})},
		},
	}
}

func TestParseModuleRoundtrip(t *testing.T) {
	original := buildCallModule()
	encoded := original.Encode()

	parsed, err := wasm.ParseModuleValidate(encoded)
	if err != nil {
		t.Fatalf("ParseModuleValidate: %v", err)
	}

	if len(parsed.Types) != 3 {
		t.Errorf("Types: got %d, want 3", len(parsed.Types))
	}
	if len(parsed.Imports) != 1 || parsed.Imports[0].Name != "casper_revert" {
		t.Errorf("Imports: got %+v", parsed.Imports)
	}
	if len(parsed.Funcs) != 2 || len(parsed.Code) != 2 {
		t.Errorf("Funcs/Code: got %d/%d", len(parsed.Funcs), len(parsed.Code))
	}
	if idx, ok := parsed.ExportedFunc("call"); !ok || idx != 2 {
		t.Errorf("ExportedFunc(call): got %d/%v", idx, ok)
	}
	ft := parsed.GetFuncType(2)
	if ft == nil || len(ft.Params) != 0 || len(ft.Results) != 1 {
		t.Errorf("GetFuncType(2): got %+v", ft)
	}

	// encoding must be deterministic
	if !bytes.Equal(parsed.Encode(), encoded) {
		t.Error("re-encoded module differs from original bytes")
	}
}

func TestParseModuleHeaderErrors(t *testing.T) {
	if _, err := wasm.ParseModule([]byte{0x00, 0x61, 0x73, 0x6e, 0x01, 0x00, 0x00, 0x00}); !errors.Is(err, wasm.ErrInvalidMagic) {
		t.Errorf("bad magic: got %v", err)
	}
	if _, err := wasm.ParseModule([]byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00}); !errors.Is(err, wasm.ErrInvalidVersion) {
		t.Errorf("bad version: got %v", err)
	}
}

func TestParseModuleSectionOrder(t *testing.T) {
	// memory section (5) followed by type section (1)
	data := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x01, 0x01, 0x00,
	}
	if _, err := wasm.ParseModule(data); err == nil || !strings.Contains(err.Error(), "out of order") {
		t.Errorf("out-of-order sections: got %v", err)
	}
}

func TestParseModuleDuplicateExport(t *testing.T) {
	m := buildCallModule()
	m.Exports = append(m.Exports, wasm.Export{Name: "call", Kind: wasm.KindFunc, Idx: 1})
	if _, err := wasm.ParseModule(m.Encode()); err == nil || !strings.Contains(err.Error(), "duplicate export") {
		t.Errorf("duplicate export: got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Run("bad export index", func(t *testing.T) {
		m := buildCallModule()
		m.Exports[1].Idx = 9
		if err := m.Validate(); err == nil {
			t.Error("expected error for export index out of range")
		}
	})

	t.Run("bad call target", func(t *testing.T) {
		m := buildCallModule()
		m.Code[1].Code = wasm.EncodeInstructions([]wasm.Instruction{
			{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 42}},
			{Opcode: wasm.OpEnd},
		})
		if err := m.Validate(); err == nil {
			t.Error("expected error for call target out of range")
		}
	})

	t.Run("two memories", func(t *testing.T) {
		m := buildCallModule()
		m.Memories = append(m.Memories, wasm.MemoryType{Limits: wasm.Limits{Min: 1}})
		if err := m.Validate(); err == nil {
			t.Error("expected error for multiple memories")
		}
	})

	t.Run("unknown opcode", func(t *testing.T) {
		m := buildCallModule()
		// 0xFC-prefixed instructions are not part of the accepted set
		m.Code[1].Code = []byte{0xFC, 0x0A, 0x00, 0x00, wasm.OpEnd}
		if err := m.Validate(); err == nil || !strings.Contains(err.Error(), "unknown opcode") {
			t.Errorf("unknown opcode: got %v", err)
		}
	})
}

func TestCheckLimits(t *testing.T) {
	limits := wasm.ValidationLimits{
		MaxTableSize:      16,
		MaxGlobals:        2,
		MaxParameterCount: 4,
		MaxBrTableSize:    4,
	}

	t.Run("within limits", func(t *testing.T) {
		if err := buildCallModule().CheckLimits(limits); err != nil {
			t.Errorf("CheckLimits: %v", err)
		}
	})

	t.Run("too many parameters", func(t *testing.T) {
		m := buildCallModule()
		m.Types[0].Params = make([]wasm.ValType, 5)
		for i := range m.Types[0].Params {
			m.Types[0].Params[i] = wasm.ValI32
		}
		if err := m.CheckLimits(limits); err == nil {
			t.Error("expected parameter count error")
		}
	})

	t.Run("too many globals", func(t *testing.T) {
		m := buildCallModule()
		for i := 0; i < 3; i++ {
			m.Globals = append(m.Globals, wasm.Global{
				Type: wasm.GlobalType{ValType: wasm.ValI32},
				Init: []byte{wasm.OpI32Const, 0x00, wasm.OpEnd},
			})
		}
		if err := m.CheckLimits(limits); err == nil {
			t.Error("expected globals count error")
		}
	})

	t.Run("table too large", func(t *testing.T) {
		m := buildCallModule()
		m.Tables = []wasm.TableType{{ElemType: wasm.FuncRefType, Limits: wasm.Limits{Min: 64}}}
		if err := m.CheckLimits(limits); err == nil {
			t.Error("expected table size error")
		}
	})

	t.Run("br_table too wide", func(t *testing.T) {
		m := buildCallModule()
		m.Code[1].Code = wasm.EncodeInstructions([]wasm.Instruction{
			{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
			{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 0, 0, 0, 0}, Default: 0}},
			{Opcode: wasm.OpEnd},
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
			{Opcode: wasm.OpEnd},
		})
		if err := m.CheckLimits(limits); err == nil {
			t.Error("expected br_table size error")
		}
	})
}

func TestInstructionRoundtrip(t *testing.T) {
	instrs := []wasm.Instruction{
		{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: byte(wasm.ValI32)}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -42}},
		{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 1 << 40}},
		{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 0}},
		{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2, Offset: 16}},
		{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{}},
		{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 1}},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpEnd},
	}

	encoded := wasm.EncodeInstructions(instrs)
	decoded, err := wasm.DecodeInstructions(encoded)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(decoded) != len(instrs) {
		t.Fatalf("decoded %d instructions, want %d", len(decoded), len(instrs))
	}
	if !bytes.Equal(wasm.EncodeInstructions(decoded), encoded) {
		t.Error("instruction re-encoding differs")
	}
}
