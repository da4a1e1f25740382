package wasm

import (
	"fmt"
	"math"
)

// GasRules supplies per-instruction costs during gas metering injection.
type GasRules interface {
	// InstructionCost returns the cost charged for executing op once.
	// ok=false marks the opcode as forbidden in deployed code.
	InstructionCost(op byte) (cost uint32, ok bool)
}

// ForbiddenOpcodeError is returned when instrumentation encounters an
// instruction the gas rules reject.
type ForbiddenOpcodeError struct {
	Opcode    byte
	FuncIndex uint32
}

func (e *ForbiddenOpcodeError) Error() string {
	return fmt.Sprintf("function %d uses forbidden opcode 0x%02x", e.FuncIndex, e.Opcode)
}

// InjectGasCounter rewrites the module to charge gas through an imported
// accounting function before every metering block. The import is appended
// under importModule.importName with signature (i32) -> nil, and every
// function index referring to declared functions is shifted to make room.
func InjectGasCounter(m *Module, rules GasRules, importModule, importName string) error {
	gasType := m.AddType(FuncType{Params: []ValType{ValI32}})
	gasIdx := uint32(m.NumImportedFuncs())

	m.Imports = append(m.Imports, Import{
		Module: importModule,
		Name:   importName,
		Desc:   ImportDesc{Kind: KindFunc, TypeIdx: gasType},
	})

	// The new import takes index gasIdx; every declared function shifts up.
	shift := func(idx uint32) uint32 {
		if idx >= gasIdx {
			return idx + 1
		}
		return idx
	}

	for i := range m.Exports {
		if m.Exports[i].Kind == KindFunc {
			m.Exports[i].Idx = shift(m.Exports[i].Idx)
		}
	}
	for i := range m.Elements {
		for j, idx := range m.Elements[i].FuncIdxs {
			m.Elements[i].FuncIdxs[j] = shift(idx)
		}
	}
	if m.Start != nil {
		s := shift(*m.Start)
		m.Start = &s
	}

	for i := range m.Code {
		instrs, err := DecodeInstructions(m.Code[i].Code)
		if err != nil {
			return err
		}
		for j := range instrs {
			if imm, ok := instrs[j].Imm.(CallImm); ok {
				instrs[j].Imm = CallImm{FuncIdx: shift(imm.FuncIdx)}
			}
		}
		metered, err := meterBody(instrs, rules, gasIdx, gasIdx+uint32(i)+1)
		if err != nil {
			return err
		}
		m.Code[i].Code = EncodeInstructions(metered)
	}

	return nil
}

// meterBody splits the body into metering blocks and prepends each block's
// accumulated cost as `i32.const cost; call gas`. A metering block ends at
// every control boundary, so a charge is only paid on paths that execute it.
func meterBody(instrs []Instruction, rules GasRules, gasIdx, funcIdx uint32) ([]Instruction, error) {
	out := make([]Instruction, 0, len(instrs)+len(instrs)/4)
	pending := make([]Instruction, 0, 16)
	var chunkCost uint64

	flush := func() {
		if chunkCost > 0 {
			if chunkCost > math.MaxInt32 {
				chunkCost = math.MaxInt32
			}
			out = append(out,
				Instruction{Opcode: OpI32Const, Imm: I32Imm{Value: int32(chunkCost)}},
				Instruction{Opcode: OpCall, Imm: CallImm{FuncIdx: gasIdx}},
			)
		}
		out = append(out, pending...)
		pending = pending[:0]
		chunkCost = 0
	}

	for _, instr := range instrs {
		cost, ok := rules.InstructionCost(instr.Opcode)
		if !ok {
			return nil, &ForbiddenOpcodeError{Opcode: instr.Opcode, FuncIndex: funcIdx}
		}
		chunkCost += uint64(cost)
		pending = append(pending, instr)

		switch instr.Opcode {
		case OpBlock, OpLoop, OpIf, OpElse, OpEnd,
			OpBr, OpBrIf, OpBrTable, OpReturn, OpUnreachable:
			flush()
		}
	}
	flush()

	return out, nil
}

// InjectStackLimiter adds a mutable counter global tracking activation frame
// height. Each function charges its frame size on entry and traps once the
// limit is exceeded. The original body is wrapped in a block typed like the
// function's result and the charge is released after that block's end, so
// branches to the function-level label release it too; an explicit return
// releases before jumping out.
func InjectStackLimiter(m *Module, limit uint32) error {
	globalIdx := uint32(m.NumImportedGlobals() + len(m.Globals))
	m.Globals = append(m.Globals, Global{
		Type: GlobalType{ValType: ValI32, Mutable: true},
		Init: []byte{OpI32Const, 0x00, OpEnd},
	})

	for i := range m.Code {
		ft := m.typeAt(m.Funcs[i])
		if ft == nil {
			return fmt.Errorf("function %d references invalid type index %d", i, m.Funcs[i])
		}
		frame := 1 + uint32(len(ft.Params)) + m.Code[i].NumLocals()
		if frame > math.MaxInt32 {
			frame = math.MaxInt32
		}

		instrs, err := DecodeInstructions(m.Code[i].Code)
		if err != nil {
			return err
		}

		charge := []Instruction{
			{Opcode: OpGlobalGet, Imm: GlobalImm{GlobalIdx: globalIdx}},
			{Opcode: OpI32Const, Imm: I32Imm{Value: int32(frame)}},
			{Opcode: OpI32Add},
			{Opcode: OpGlobalSet, Imm: GlobalImm{GlobalIdx: globalIdx}},
			{Opcode: OpGlobalGet, Imm: GlobalImm{GlobalIdx: globalIdx}},
			{Opcode: OpI32Const, Imm: I32Imm{Value: int32(limit)}},
			{Opcode: OpI32GtU},
			{Opcode: OpIf, Imm: BlockImm{Type: BlockTypeVoid}},
			{Opcode: OpUnreachable},
			{Opcode: OpEnd},
		}
		release := []Instruction{
			{Opcode: OpGlobalGet, Imm: GlobalImm{GlobalIdx: globalIdx}},
			{Opcode: OpI32Const, Imm: I32Imm{Value: int32(frame)}},
			{Opcode: OpI32Sub},
			{Opcode: OpGlobalSet, Imm: GlobalImm{GlobalIdx: globalIdx}},
		}

		blockType := BlockTypeVoid
		switch len(ft.Results) {
		case 0:
		case 1:
			blockType = byte(ft.Results[0])
		default:
			return fmt.Errorf("function %d has %d results, limiter supports at most 1", i, len(ft.Results))
		}

		// The body's own final end closes the wrapping block, putting the
		// release on every exit path that is not an explicit return.
		out := make([]Instruction, 0, len(instrs)+len(charge)+2*len(release)+2)
		out = append(out, charge...)
		out = append(out, Instruction{Opcode: OpBlock, Imm: BlockImm{Type: blockType}})
		for _, instr := range instrs {
			if instr.Opcode == OpReturn {
				out = append(out, release...)
			}
			out = append(out, instr)
		}
		out = append(out, release...)
		out = append(out, Instruction{Opcode: OpEnd})
		m.Code[i].Code = EncodeInstructions(out)
	}

	return nil
}
