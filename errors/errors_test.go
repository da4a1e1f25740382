package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhasePreprocess,
				Kind:   KindLimitExceeded,
				Path:   []string{"table", "0"},
				Detail: "too many entries",
			},
			contains: []string{"[preprocess]", "limit_exceeded", "table.0", "too many entries"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindUnknownImport,
			},
			contains: []string{"[resolve]", "unknown_import"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindTrap,
				Detail: "wasm trap",
				Cause:  errors.New("unreachable executed"),
			},
			contains: []string{"[runtime]", "trap", "wasm trap", "caused by", "unreachable executed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseInstantiate,
		Kind:  KindBackend,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseResolve,
		Kind:  KindUnknownImport,
		Path:  []string{"env"},
	}

	if !err.Is(&Error{Phase: PhaseResolve, Kind: KindUnknownImport}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseInstantiate, Kind: KindUnknownImport}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindReservedImport}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseResolve, Kind: KindUnknownImport}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhasePreprocess, KindLimitExceeded).
		Path("globals").
		Value(300).
		Cause(cause).
		Detail("count %d exceeds %d", 300, 256).
		Build()

	if err.Phase != PhasePreprocess {
		t.Errorf("Phase = %v, want %v", err.Phase, PhasePreprocess)
	}
	if err.Kind != KindLimitExceeded {
		t.Errorf("Kind = %v, want %v", err.Kind, KindLimitExceeded)
	}
	if len(err.Path) != 1 || err.Path[0] != "globals" {
		t.Errorf("Path = %v, want [globals]", err.Path)
	}
	if err.Value != 300 {
		t.Errorf("Value = %v, want 300", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "count 300 exceeds 256" {
		t.Errorf("Detail = %v, want 'count 300 exceeds 256'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("UnknownImport", func(t *testing.T) {
		err := UnknownImport("env", "casper_write")
		if err.Kind != KindUnknownImport {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnknownImport)
		}
		if !strings.Contains(err.Detail, "env.casper_write") {
			t.Errorf("Detail = %v, should name the import", err.Detail)
		}
	})

	t.Run("ReservedImport", func(t *testing.T) {
		err := ReservedImport("env", "gas")
		if err.Phase != PhasePreprocess || err.Kind != KindReservedImport {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
	})

	t.Run("LimitExceeded", func(t *testing.T) {
		err := LimitExceeded("table size", 8192, 4096)
		if err.Kind != KindLimitExceeded {
			t.Errorf("Kind = %v, want %v", err.Kind, KindLimitExceeded)
		}
		if !strings.Contains(err.Detail, "8192") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("MemoryAccess", func(t *testing.T) {
		err := MemoryAccess(65530, 16, 65536)
		if err.Phase != PhaseHost || err.Kind != KindMemoryAccess {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if err.Value != uint32(65530) {
			t.Errorf("Value = %v, want 65530", err.Value)
		}
	})

	t.Run("ForbiddenOpcode", func(t *testing.T) {
		err := ForbiddenOpcode(0x92, 3)
		if err.Kind != KindForbiddenOpcode {
			t.Errorf("Kind = %v, want %v", err.Kind, KindForbiddenOpcode)
		}
		if !strings.Contains(err.Detail, "0x92") {
			t.Errorf("Detail = %v, should contain opcode", err.Detail)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported("casper_transfer_to_account")
		if err.Phase != PhaseHost || err.Kind != KindUnsupported {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
	})

	t.Run("ExportNotFound", func(t *testing.T) {
		err := ExportNotFound("call")
		if err.Kind != KindExportNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindExportNotFound)
		}
	})

	t.Run("InstanceState", func(t *testing.T) {
		err := InstanceState("trapped")
		if err.Kind != KindInstanceState {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInstanceState)
		}
	})
}

func TestRevert(t *testing.T) {
	err := &Revert{Code: 65636}

	if !strings.Contains(err.Error(), "65636") {
		t.Errorf("Error() = %v, should contain code", err.Error())
	}

	var revert *Revert
	if !errors.As(error(err), &revert) {
		t.Fatal("errors.As should find Revert")
	}
	if revert.Code != 65636 {
		t.Errorf("Code = %d, want 65636", revert.Code)
	}

	if !errors.Is(err, &Revert{Code: 65636}) {
		t.Error("errors.Is should match same code")
	}
	if errors.Is(err, &Revert{Code: 1}) {
		t.Error("errors.Is should not match different code")
	}
}

func TestHostError(t *testing.T) {
	inner := Unsupported("casper_new_uref")
	err := &HostError{Function: "casper_new_uref", Err: inner}

	if !strings.Contains(err.Error(), "casper_new_uref") {
		t.Errorf("Error() = %v, should name the function", err.Error())
	}
	if !errors.Is(err, &Error{Phase: PhaseHost, Kind: KindUnsupported}) {
		t.Error("errors.Is should unwrap to the inner error")
	}

	var he *HostError
	wrapped := Trap(err)
	if !errors.As(error(wrapped), &he) {
		t.Fatal("errors.As should find HostError through Trap")
	}
	if he.Function != "casper_new_uref" {
		t.Errorf("Function = %q, want casper_new_uref", he.Function)
	}
}
