package host_test

import (
	"sync"
	"testing"

	"github.com/wippyai/contract-engine/host"
)

func TestScopeFlagZeroValue(t *testing.T) {
	var flag host.ScopeFlag
	if flag.InScope() {
		t.Error("zero value flag reports in scope")
	}
	if got := flag.Depth(); got != 0 {
		t.Errorf("Depth() = %d, want 0", got)
	}
}

func TestScopeFlagEnterExit(t *testing.T) {
	var flag host.ScopeFlag

	guard := flag.Enter()
	if !flag.InScope() {
		t.Error("flag not in scope after Enter")
	}
	if got := flag.Depth(); got != 1 {
		t.Errorf("Depth() = %d, want 1", got)
	}

	guard.Exit()
	if flag.InScope() {
		t.Error("flag still in scope after Exit")
	}
}

func TestScopeFlagNested(t *testing.T) {
	var flag host.ScopeFlag

	outer := flag.Enter()
	inner := flag.Enter()
	if got := flag.Depth(); got != 2 {
		t.Errorf("Depth() = %d, want 2", got)
	}

	inner.Exit()
	if !flag.InScope() {
		t.Error("outer scope lost after inner Exit")
	}
	if got := flag.Depth(); got != 1 {
		t.Errorf("Depth() = %d, want 1", got)
	}

	outer.Exit()
	if flag.InScope() {
		t.Error("flag still in scope after outer Exit")
	}
}

func TestScopeGuardExitIdempotent(t *testing.T) {
	var flag host.ScopeFlag

	outer := flag.Enter()
	inner := flag.Enter()

	inner.Exit()
	inner.Exit()
	inner.Exit()

	if got := flag.Depth(); got != 1 {
		t.Errorf("Depth() = %d after repeated inner Exit, want 1", got)
	}
	outer.Exit()
	if got := flag.Depth(); got != 0 {
		t.Errorf("Depth() = %d, want 0", got)
	}
}

func TestScopeFlagClampsAtZero(t *testing.T) {
	var flag host.ScopeFlag

	// A fresh guard pointed at an empty flag must not underflow the counter.
	guard := flag.Enter()
	guard.Exit()
	guard2 := flag.Enter()
	guard2.Exit()

	if got := flag.Depth(); got != 0 {
		t.Errorf("Depth() = %d, want 0", got)
	}
	if flag.InScope() {
		t.Error("flag in scope after balanced Enter/Exit pairs")
	}
}

func TestScopeFlagConcurrent(t *testing.T) {
	var flag host.ScopeFlag
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g := flag.Enter()
				if !flag.InScope() {
					t.Error("flag not in scope inside guard")
				}
				g.Exit()
			}
		}()
	}
	wg.Wait()

	if got := flag.Depth(); got != 0 {
		t.Errorf("Depth() = %d after balanced concurrent use, want 0", got)
	}
}
