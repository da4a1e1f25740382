package wasm

import (
	"bytes"
	"fmt"
)

// Opcode constants are defined in constants.go

// Instruction represents a decoded WebAssembly instruction
type Instruction struct {
	Imm    interface{}
	Opcode byte
}

// BlockImm holds the block type for block, loop, and if instructions.
// Only void and single value types are valid in the MVP.
type BlockImm struct {
	Type byte // BlockTypeVoid or a value type byte
}

// BranchImm holds the label index for br and br_if instructions.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm holds the label table for br_table instruction.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call instruction.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm holds type and table indices for call_indirect instruction.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Align  uint32
	Offset uint32
}

// MemoryIdxImm holds the memory index for memory.size and memory.grow.
type MemoryIdxImm struct {
	MemIdx byte
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant value for i64.const instruction.
type I64Imm struct {
	Value int64
}

// F32Imm holds the raw bit pattern for f32.const. Bits are kept verbatim so
// re-encoding preserves NaN payloads.
type F32Imm struct {
	Bits [4]byte
}

// F64Imm holds the raw bit pattern for f64.const.
type F64Imm struct {
	Bits [8]byte
}

// GetCallTarget returns the call target if this is a call instruction
func (i Instruction) GetCallTarget() (uint32, bool) {
	if i.Opcode == OpCall {
		if imm, ok := i.Imm.(CallImm); ok {
			return imm.FuncIdx, true
		}
	}
	return 0, false
}

// DecodeInstructions decodes a sequence of instructions from raw bytes.
// Unknown or prefixed opcodes are rejected; only the MVP instruction set
// is accepted.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := bytes.NewReader(code)
	instrs := make([]Instruction, 0, len(code)/2)

	for r.Len() > 0 {
		op, err := r.ReadByte()
		if err != nil {
			break
		}

		instr := Instruction{Opcode: op}

		switch op {
		case OpBlock, OpLoop, OpIf:
			bt, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			switch bt {
			case BlockTypeVoid, byte(ValI32), byte(ValI64), byte(ValF32), byte(ValF64):
			default:
				return nil, fmt.Errorf("invalid block type 0x%02x", bt)
			}
			instr.Imm = BlockImm{Type: bt}

		case OpBr, OpBrIf:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = BranchImm{LabelIdx: idx}

		case OpBrTable:
			count, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			labels := make([]uint32, count)
			for i := uint32(0); i < count; i++ {
				labels[i], err = ReadLEB128u(r)
				if err != nil {
					return nil, err
				}
			}
			def, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = BrTableImm{Labels: labels, Default: def}

		case OpCall:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = CallImm{FuncIdx: idx}

		case OpCallIndirect:
			typeIdx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			tableIdx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			if tableIdx != 0 {
				return nil, fmt.Errorf("call_indirect targets table %d, only table 0 is supported", tableIdx)
			}
			instr.Imm = CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}

		case OpLocalGet, OpLocalSet, OpLocalTee:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = LocalImm{LocalIdx: idx}

		case OpGlobalGet, OpGlobalSet:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = GlobalImm{GlobalIdx: idx}

		case OpMemorySize, OpMemoryGrow:
			memIdx, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if memIdx != 0 {
				return nil, fmt.Errorf("memory instruction targets memory %d, only memory 0 is supported", memIdx)
			}
			instr.Imm = MemoryIdxImm{MemIdx: memIdx}

		case OpI32Const:
			v, err := ReadLEB128s(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = I32Imm{Value: v}

		case OpI64Const:
			v, err := ReadLEB128s64(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = I64Imm{Value: v}

		case OpF32Const:
			var imm F32Imm
			for i := range imm.Bits {
				imm.Bits[i], err = r.ReadByte()
				if err != nil {
					return nil, err
				}
			}
			instr.Imm = imm

		case OpF64Const:
			var imm F64Imm
			for i := range imm.Bits {
				imm.Bits[i], err = r.ReadByte()
				if err != nil {
					return nil, err
				}
			}
			instr.Imm = imm

		default:
			if op >= OpI32Load && op <= OpI64Store32 {
				align, err := ReadLEB128u(r)
				if err != nil {
					return nil, err
				}
				offset, err := ReadLEB128u(r)
				if err != nil {
					return nil, err
				}
				instr.Imm = MemoryImm{Align: align, Offset: offset}
				break
			}
			if !isBareOpcode(op) {
				return nil, fmt.Errorf("unknown opcode 0x%02x", op)
			}
		}

		instrs = append(instrs, instr)
	}

	return instrs, nil
}

// isBareOpcode reports whether op is an MVP instruction with no immediates.
func isBareOpcode(op byte) bool {
	switch op {
	case OpUnreachable, OpNop, OpElse, OpEnd, OpReturn, OpDrop, OpSelect:
		return true
	}
	// comparisons, numerics, and conversions
	return op >= OpI32Eqz && op <= OpF64ReinterpretI64
}

// EncodeInstructionTo writes a single instruction to the provided buffer.
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)

	switch imm := instr.Imm.(type) {
	case BlockImm:
		buf.WriteByte(imm.Type)
	case BranchImm:
		WriteLEB128u(buf, imm.LabelIdx)
	case BrTableImm:
		WriteLEB128u(buf, uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			WriteLEB128u(buf, l)
		}
		WriteLEB128u(buf, imm.Default)
	case CallImm:
		WriteLEB128u(buf, imm.FuncIdx)
	case CallIndirectImm:
		WriteLEB128u(buf, imm.TypeIdx)
		WriteLEB128u(buf, imm.TableIdx)
	case LocalImm:
		WriteLEB128u(buf, imm.LocalIdx)
	case GlobalImm:
		WriteLEB128u(buf, imm.GlobalIdx)
	case MemoryImm:
		WriteLEB128u(buf, imm.Align)
		WriteLEB128u(buf, imm.Offset)
	case MemoryIdxImm:
		buf.WriteByte(imm.MemIdx)
	case I32Imm:
		WriteLEB128s(buf, imm.Value)
	case I64Imm:
		WriteLEB128s64(buf, imm.Value)
	case F32Imm:
		buf.Write(imm.Bits[:])
	case F64Imm:
		buf.Write(imm.Bits[:])
	}
}

// EncodeInstructionsTo writes multiple instructions to the provided buffer.
func EncodeInstructionsTo(buf *bytes.Buffer, instrs []Instruction) {
	for i := range instrs {
		EncodeInstructionTo(buf, &instrs[i])
	}
}

// EncodeInstructions encodes instructions to bytes
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	buf.Grow(len(instrs) * 3)
	EncodeInstructionsTo(&buf, instrs)
	return buf.Bytes()
}
