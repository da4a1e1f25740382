package wasm

import "fmt"

// ValidationLimits bound module shape beyond what the binary format requires.
// Zero values mean no limit for that field.
type ValidationLimits struct {
	MaxTableSize      uint32
	MaxGlobals        uint32
	MaxParameterCount uint32
	MaxBrTableSize    uint32
}

// DefaultValidationLimits are the limits applied to deployed contract code.
var DefaultValidationLimits = ValidationLimits{
	MaxTableSize:      4096,
	MaxGlobals:        256,
	MaxParameterCount: 256,
	MaxBrTableSize:    256,
}

// Validate checks the module for structural validity.
func (m *Module) Validate() error {
	if err := m.validateTypeIndices(); err != nil {
		return err
	}
	if err := m.validateFunctionIndices(); err != nil {
		return err
	}
	if err := m.validateMemoriesAndTables(); err != nil {
		return err
	}
	if err := m.validateGlobalIndices(); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	if err := m.validateCodeCount(); err != nil {
		return err
	}
	return nil
}

// ParseModuleValidate parses a WebAssembly binary and validates it.
// This is a convenience function combining ParseModule and Validate.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckLimits enforces ValidationLimits on a structurally valid module.
func (m *Module) CheckLimits(limits ValidationLimits) error {
	if limits.MaxParameterCount > 0 {
		for i, ft := range m.Types {
			if uint32(len(ft.Params)) > limits.MaxParameterCount {
				return fmt.Errorf("type %d has %d parameters, limit is %d", i, len(ft.Params), limits.MaxParameterCount)
			}
		}
	}

	if limits.MaxGlobals > 0 {
		total := m.NumImportedGlobals() + len(m.Globals)
		if uint32(total) > limits.MaxGlobals {
			return fmt.Errorf("module declares %d globals, limit is %d", total, limits.MaxGlobals)
		}
	}

	if limits.MaxTableSize > 0 {
		check := func(t *TableType) error {
			if t.Limits.Min > limits.MaxTableSize {
				return fmt.Errorf("table initial size %d exceeds limit %d", t.Limits.Min, limits.MaxTableSize)
			}
			if t.Limits.Max != nil && *t.Limits.Max > limits.MaxTableSize {
				return fmt.Errorf("table max size %d exceeds limit %d", *t.Limits.Max, limits.MaxTableSize)
			}
			return nil
		}
		for i := range m.Tables {
			if err := check(&m.Tables[i]); err != nil {
				return err
			}
		}
		for i := range m.Imports {
			if m.Imports[i].Desc.Kind == KindTable {
				if err := check(m.Imports[i].Desc.Table); err != nil {
					return err
				}
			}
		}
	}

	if limits.MaxBrTableSize > 0 {
		for i := range m.Code {
			instrs, err := DecodeInstructions(m.Code[i].Code)
			if err != nil {
				return fmt.Errorf("function %d: %w", i, err)
			}
			for _, instr := range instrs {
				if imm, ok := instr.Imm.(BrTableImm); ok {
					if uint32(len(imm.Labels)) > limits.MaxBrTableSize {
						return fmt.Errorf("function %d br_table has %d targets, limit is %d", i, len(imm.Labels), limits.MaxBrTableSize)
					}
				}
			}
		}
	}

	return nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types))

	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return fmt.Errorf("function %d references invalid type index %d", i, typeIdx)
		}
	}

	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return fmt.Errorf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}

	return nil
}

func (m *Module) validateFunctionIndices() error {
	numFuncs := uint32(m.NumImportedFuncs() + len(m.Funcs))

	if m.Start != nil && *m.Start >= numFuncs {
		return fmt.Errorf("start function index %d out of range", *m.Start)
	}

	for i, elem := range m.Elements {
		for _, idx := range elem.FuncIdxs {
			if idx >= numFuncs {
				return fmt.Errorf("element segment %d references invalid function index %d", i, idx)
			}
		}
	}

	for i := range m.Code {
		instrs, err := DecodeInstructions(m.Code[i].Code)
		if err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
		for _, instr := range instrs {
			if target, ok := instr.GetCallTarget(); ok && target >= numFuncs {
				return fmt.Errorf("function %d calls invalid function index %d", i, target)
			}
			if imm, ok := instr.Imm.(CallIndirectImm); ok {
				if imm.TypeIdx >= uint32(len(m.Types)) {
					return fmt.Errorf("function %d call_indirect references invalid type index %d", i, imm.TypeIdx)
				}
			}
		}
	}

	return nil
}

func (m *Module) validateMemoriesAndTables() error {
	numMems := m.NumImportedMemories() + len(m.Memories)
	if numMems > 1 {
		return fmt.Errorf("module declares %d memories, at most 1 is allowed", numMems)
	}
	numTables := m.NumImportedTables() + len(m.Tables)
	if numTables > 1 {
		return fmt.Errorf("module declares %d tables, at most 1 is allowed", numTables)
	}
	for _, mem := range m.Memories {
		if mem.Limits.Max != nil && *mem.Limits.Max < mem.Limits.Min {
			return fmt.Errorf("memory max %d is below min %d", *mem.Limits.Max, mem.Limits.Min)
		}
	}
	for _, t := range m.Tables {
		if t.Limits.Max != nil && *t.Limits.Max < t.Limits.Min {
			return fmt.Errorf("table max %d is below min %d", *t.Limits.Max, t.Limits.Min)
		}
	}
	return nil
}

func (m *Module) validateGlobalIndices() error {
	numGlobals := uint32(m.NumImportedGlobals() + len(m.Globals))

	for i := range m.Code {
		instrs, err := DecodeInstructions(m.Code[i].Code)
		if err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
		for _, instr := range instrs {
			if imm, ok := instr.Imm.(GlobalImm); ok && imm.GlobalIdx >= numGlobals {
				return fmt.Errorf("function %d references invalid global index %d", i, imm.GlobalIdx)
			}
		}
	}

	return nil
}

func (m *Module) validateExports() error {
	numFuncs := uint32(m.NumImportedFuncs() + len(m.Funcs))
	numTables := uint32(m.NumImportedTables() + len(m.Tables))
	numMems := uint32(m.NumImportedMemories() + len(m.Memories))
	numGlobals := uint32(m.NumImportedGlobals() + len(m.Globals))

	for _, exp := range m.Exports {
		var max uint32
		switch exp.Kind {
		case KindFunc:
			max = numFuncs
		case KindTable:
			max = numTables
		case KindMemory:
			max = numMems
		case KindGlobal:
			max = numGlobals
		default:
			return fmt.Errorf("export %q has invalid kind 0x%02x", exp.Name, exp.Kind)
		}
		if exp.Idx >= max {
			return fmt.Errorf("export %q references invalid index %d", exp.Name, exp.Idx)
		}
	}

	return nil
}

func (m *Module) validateCodeCount() error {
	if len(m.Funcs) != len(m.Code) {
		return fmt.Errorf("function count %d does not match code count %d", len(m.Funcs), len(m.Code))
	}
	return nil
}
