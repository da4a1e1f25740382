//go:build cgo

package engine_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/contract-engine/engine"
	"github.com/wippyai/contract-engine/errors"
)

func TestJitInvoke(t *testing.T) {
	e := newEngine(t, engine.JitCompiled{})
	mod, err := e.Preprocess(context.Background(), answerModule(t))
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}

	h := &recordingHost{}
	inst, err := e.InstanceAndMemory(context.Background(), mod, h)
	if err != nil {
		t.Fatalf("InstanceAndMemory: %v", err)
	}
	defer inst.Close(context.Background())

	ret, err := inst.InvokeExport(context.Background(), "answer", nil)
	if err != nil {
		t.Fatalf("InvokeExport: %v", err)
	}
	if ret == nil || ret.I32() != 42 {
		t.Errorf("result = %v, want i32:42", ret)
	}

	// Jit modules are never instrumented, so only explicit host calls
	// consume gas.
	if h.consumed != 0 {
		t.Errorf("consumed gas = %d, want 0", h.consumed)
	}
}

func TestJitExplicitGasMatchesCompiled(t *testing.T) {
	code := importModule(t, "gas", 100)
	consumed := make(map[string]uint64)

	for _, mode := range []engine.ExecutionMode{
		engine.JitCompiled{},
		engine.NativeCompiled{},
	} {
		name := engine.ModeName(mode)
		e := newEngine(t, mode)
		mod, err := e.Preprocess(context.Background(), code)
		if err != nil {
			t.Fatalf("%s: Preprocess: %v", name, err)
		}
		h := &recordingHost{}
		inst, err := e.InstanceAndMemory(context.Background(), mod, h)
		if err != nil {
			t.Fatalf("%s: InstanceAndMemory: %v", name, err)
		}
		if _, err := inst.InvokeExport(context.Background(), "call", nil); err != nil {
			t.Fatalf("%s: InvokeExport: %v", name, err)
		}
		inst.Close(context.Background())
		consumed[name] = h.consumed
	}

	for name, got := range consumed {
		if got != 100 {
			t.Errorf("%s consumed %d gas, want 100", name, got)
		}
	}
}

func TestJitRevert(t *testing.T) {
	e := newEngine(t, engine.JitCompiled{})
	mod, err := e.Preprocess(context.Background(), importModule(t, "casper_revert", 7))
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}

	inst, err := e.InstanceAndMemory(context.Background(), mod, &recordingHost{})
	if err != nil {
		t.Fatalf("InstanceAndMemory: %v", err)
	}
	defer inst.Close(context.Background())

	_, err = inst.InvokeExport(context.Background(), "call", nil)
	var revert *errors.Revert
	if !stderrors.As(err, &revert) {
		t.Fatalf("error %v does not carry a revert", err)
	}
	if revert.Code != 7 {
		t.Errorf("revert code = %d, want 7", revert.Code)
	}
}

func TestJitHostMemoryAccess(t *testing.T) {
	e := newEngine(t, engine.JitCompiled{})
	mod, err := e.Preprocess(context.Background(), importModule(t, "casper_get_phase", 8))
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}

	h := &recordingHost{phase: 2}
	inst, err := e.InstanceAndMemory(context.Background(), mod, h)
	if err != nil {
		t.Fatalf("InstanceAndMemory: %v", err)
	}
	defer inst.Close(context.Background())

	if _, err := inst.InvokeExport(context.Background(), "call", nil); err != nil {
		t.Fatalf("InvokeExport: %v", err)
	}

	data, err := inst.Memory().MemoryRead(8, 1)
	if err != nil {
		t.Fatalf("MemoryRead: %v", err)
	}
	if data[0] != 2 {
		t.Errorf("memory[8] = %d, want 2", data[0])
	}
}

func TestJitArtifactCache(t *testing.T) {
	e := newEngine(t, engine.JitCompiled{CacheArtifacts: true})
	code := answerModule(t)

	for n := 0; n < 2; n++ {
		mod, err := e.Preprocess(context.Background(), code)
		if err != nil {
			t.Fatalf("Preprocess #%d: %v", n, err)
		}
		inst, err := e.InstanceAndMemory(context.Background(), mod, &recordingHost{})
		if err != nil {
			t.Fatalf("InstanceAndMemory #%d: %v", n, err)
		}
		ret, err := inst.InvokeExport(context.Background(), "answer", nil)
		if err != nil {
			t.Fatalf("InvokeExport #%d: %v", n, err)
		}
		if ret.I32() != 42 {
			t.Errorf("run #%d: result = %d, want 42", n, ret.I32())
		}
		inst.Close(context.Background())
	}
}
