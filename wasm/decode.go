package wasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/contract-engine/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// ParseModule parses a WebAssembly binary module
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(bytes.NewReader(data))

	// Check magic number
	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	// Check version
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}

	// Sections must appear in increasing ID order, custom sections anywhere
	var lastSectionID byte

	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, r.WrapError("section header", err)
		}

		if sectionID != SectionCustom {
			if sectionID > SectionData {
				return nil, fmt.Errorf("unknown section ID: 0x%02x", sectionID)
			}
			if sectionID <= lastSectionID {
				return nil, fmt.Errorf("section %d appears out of order", sectionID)
			}
			lastSectionID = sectionID
		}

		sectionSize, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}

		sectionData, err := r.ReadBytes(int(sectionSize))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}

		sr := binary.NewReader(bytes.NewReader(sectionData))

		switch sectionID {
		case SectionCustom:
			if err := parseCustomSection(sr, sectionData, m); err != nil {
				return nil, fmt.Errorf("custom section: %w", err)
			}
		case SectionType:
			if err := parseTypeSection(sr, m); err != nil {
				return nil, fmt.Errorf("type section: %w", err)
			}
		case SectionImport:
			if err := parseImportSection(sr, m); err != nil {
				return nil, fmt.Errorf("import section: %w", err)
			}
		case SectionFunction:
			if err := parseFunctionSection(sr, m); err != nil {
				return nil, fmt.Errorf("function section: %w", err)
			}
		case SectionTable:
			if err := parseTableSection(sr, m); err != nil {
				return nil, fmt.Errorf("table section: %w", err)
			}
		case SectionMemory:
			if err := parseMemorySection(sr, m); err != nil {
				return nil, fmt.Errorf("memory section: %w", err)
			}
		case SectionGlobal:
			if err := parseGlobalSection(sr, m); err != nil {
				return nil, fmt.Errorf("global section: %w", err)
			}
		case SectionExport:
			if err := parseExportSection(sr, m); err != nil {
				return nil, fmt.Errorf("export section: %w", err)
			}
		case SectionStart:
			if err := parseStartSection(sr, m); err != nil {
				return nil, fmt.Errorf("start section: %w", err)
			}
		case SectionElement:
			if err := parseElementSection(sr, m); err != nil {
				return nil, fmt.Errorf("element section: %w", err)
			}
		case SectionCode:
			if err := parseCodeSection(sr, sectionData, m); err != nil {
				return nil, fmt.Errorf("code section: %w", err)
			}
		case SectionData:
			if err := parseDataSection(sr, m); err != nil {
				return nil, fmt.Errorf("data section: %w", err)
			}
		}
	}

	if len(m.Funcs) != len(m.Code) {
		return nil, fmt.Errorf("function section count %d does not match code section count %d", len(m.Funcs), len(m.Code))
	}

	return m, nil
}

func parseCustomSection(r *binary.Reader, data []byte, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	rest := data[r.Position():]
	m.CustomSections = append(m.CustomSections, CustomSection{
		Name: name,
		Data: append([]byte(nil), rest...),
	})
	return nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("read type form at index %d: %w", i, err)
		}
		if form != FuncTypeByte {
			return fmt.Errorf("expected functype (0x60), got 0x%02x", form)
		}
		ft, err := readFuncType(r)
		if err != nil {
			return err
		}
		m.Types[i] = ft
	}
	return nil
}

func readFuncType(r *binary.Reader) (FuncType, error) {
	params, err := readValTypes(r)
	if err != nil {
		return FuncType{}, err
	}
	results, err := readValTypes(r)
	if err != nil {
		return FuncType{}, err
	}
	return FuncType{Params: params, Results: results}, nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	types := make([]ValType, count)
	for i := uint32(0); i < count; i++ {
		b, err := readValType(r)
		if err != nil {
			return nil, err
		}
		types[i] = b
	}
	return types, nil
}

func readValType(r *binary.Reader) (ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch ValType(b) {
	case ValI32, ValI64, ValF32, ValF64:
		return ValType(b), nil
	}
	return 0, fmt.Errorf("invalid value type 0x%02x", b)
}

func parseImportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}
		switch kind {
		case KindFunc:
			imp.Desc.TypeIdx, err = r.ReadU32()
			if err != nil {
				return err
			}
		case KindTable:
			tt, err := readTableType(r)
			if err != nil {
				return err
			}
			imp.Desc.Table = &tt
		case KindMemory:
			mt, err := readMemoryType(r)
			if err != nil {
				return err
			}
			imp.Desc.Memory = &mt
		case KindGlobal:
			gt, err := readGlobalType(r)
			if err != nil {
				return err
			}
			imp.Desc.Global = &gt
		default:
			return fmt.Errorf("invalid import kind 0x%02x", kind)
		}
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

func parseFunctionSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		m.Funcs[i], err = r.ReadU32()
		if err != nil {
			return err
		}
	}
	return nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	min, err := r.ReadU32()
	if err != nil {
		return Limits{}, err
	}
	limits := Limits{Min: min}
	switch flags {
	case 0x00:
	case 0x01:
		max, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		limits.Max = &max
	default:
		return Limits{}, fmt.Errorf("invalid limits flags 0x%02x", flags)
	}
	return limits, nil
}

func readTableType(r *binary.Reader) (TableType, error) {
	elemType, err := r.ReadByte()
	if err != nil {
		return TableType{}, err
	}
	if elemType != FuncRefType {
		return TableType{}, fmt.Errorf("invalid table element type 0x%02x", elemType)
	}
	limits, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elemType, Limits: limits}, nil
}

func readMemoryType(r *binary.Reader) (MemoryType, error) {
	limits, err := readLimits(r)
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: limits}, nil
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	vt, err := readValType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("invalid mutability flag 0x%02x", mut)
	}
	return GlobalType{ValType: vt, Mutable: mut == 1}, nil
}

func parseTableSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Tables = make([]TableType, count)
	for i := uint32(0); i < count; i++ {
		m.Tables[i], err = readTableType(r)
		if err != nil {
			return err
		}
	}
	return nil
}

func parseMemorySection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Memories = make([]MemoryType, count)
	for i := uint32(0); i < count; i++ {
		m.Memories[i], err = readMemoryType(r)
		if err != nil {
			return err
		}
	}
	return nil
}

func parseGlobalSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Globals = make([]Global, count)
	for i := uint32(0); i < count; i++ {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		init, err := readInitExpr(r)
		if err != nil {
			return err
		}
		m.Globals[i] = Global{Type: gt, Init: init}
	}
	return nil
}

// readInitExpr reads a constant initializer expression: a single const or
// global.get instruction followed by the end opcode. Raw bytes are returned
// including the end opcode.
func readInitExpr(r *binary.Reader) ([]byte, error) {
	var buf bytes.Buffer

	op, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	buf.WriteByte(op)

	switch op {
	case OpI32Const:
		v, err := r.ReadS32()
		if err != nil {
			return nil, err
		}
		WriteLEB128s(&buf, v)
	case OpI64Const:
		v, err := r.ReadS64()
		if err != nil {
			return nil, err
		}
		WriteLEB128s64(&buf, v)
	case OpF32Const:
		b, err := r.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	case OpF64Const:
		b, err := r.ReadBytes(8)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	case OpGlobalGet:
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		WriteLEB128u(&buf, idx)
	default:
		return nil, fmt.Errorf("invalid init expression opcode 0x%02x", op)
	}

	end, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if end != OpEnd {
		return nil, fmt.Errorf("init expression not terminated, got 0x%02x", end)
	}
	buf.WriteByte(end)

	return buf.Bytes(), nil
}

func parseExportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Exports = make([]Export, count)
	seen := make(map[string]struct{}, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate export name %q", name)
		}
		seen[name] = struct{}{}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		if kind > KindGlobal {
			return fmt.Errorf("invalid export kind 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Exports[i] = Export{Name: name, Kind: kind, Idx: idx}
	}
	return nil
}

func parseStartSection(r *binary.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

func parseElementSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Elements = make([]Element, count)
	for i := uint32(0); i < count; i++ {
		tableIdx, err := r.ReadU32()
		if err != nil {
			return err
		}
		if tableIdx != 0 {
			return fmt.Errorf("element segment %d targets table %d, only table 0 is supported", i, tableIdx)
		}
		offset, err := readInitExpr(r)
		if err != nil {
			return err
		}
		numIdxs, err := r.ReadU32()
		if err != nil {
			return err
		}
		idxs := make([]uint32, numIdxs)
		for j := uint32(0); j < numIdxs; j++ {
			idxs[j], err = r.ReadU32()
			if err != nil {
				return err
			}
		}
		m.Elements[i] = Element{TableIdx: tableIdx, Offset: offset, FuncIdxs: idxs}
	}
	return nil
}

func parseCodeSection(r *binary.Reader, data []byte, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, count)
	for i := uint32(0); i < count; i++ {
		bodySize, err := r.ReadU32()
		if err != nil {
			return err
		}
		bodyStart := r.Position()
		if bodyStart+int(bodySize) > len(data) {
			return fmt.Errorf("function body %d size %d exceeds section", i, bodySize)
		}

		numLocals, err := r.ReadU32()
		if err != nil {
			return err
		}
		locals := make([]LocalEntry, numLocals)
		var total uint64
		for j := uint32(0); j < numLocals; j++ {
			n, err := r.ReadU32()
			if err != nil {
				return err
			}
			vt, err := readValType(r)
			if err != nil {
				return err
			}
			total += uint64(n)
			locals[j] = LocalEntry{Count: n, ValType: vt}
		}
		if total > 0xFFFFFFFF {
			return fmt.Errorf("function body %d declares too many locals", i)
		}

		codeLen := int(bodySize) - (r.Position() - bodyStart)
		if codeLen <= 0 {
			return fmt.Errorf("function body %d has no code", i)
		}
		code, err := r.ReadBytes(codeLen)
		if err != nil {
			return err
		}
		if code[len(code)-1] != OpEnd {
			return fmt.Errorf("function body %d not terminated with end", i)
		}
		m.Code[i] = FuncBody{Locals: locals, Code: code}
	}
	return nil
}

func parseDataSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Data = make([]DataSegment, count)
	for i := uint32(0); i < count; i++ {
		memIdx, err := r.ReadU32()
		if err != nil {
			return err
		}
		if memIdx != 0 {
			return fmt.Errorf("data segment %d targets memory %d, only memory 0 is supported", i, memIdx)
		}
		offset, err := readInitExpr(r)
		if err != nil {
			return err
		}
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		init, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}
		m.Data[i] = DataSegment{MemIdx: memIdx, Offset: offset, Init: init}
	}
	return nil
}
