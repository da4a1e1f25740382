package host

import (
	"math"
	"sync/atomic"
)

// ScopeFlag tracks whether execution is currently inside a host function.
// The counter supports re-entrant calls: it stays raised until the outermost
// scope exits. All holders of the same *ScopeFlag observe the same state.
//
// The zero value is ready to use.
type ScopeFlag struct {
	counter atomic.Uint32
}

// InScope reports whether at least one host function scope is active.
func (f *ScopeFlag) InScope() bool {
	return f.counter.Load() > 0
}

// Depth returns the current nesting depth.
func (f *ScopeFlag) Depth() uint32 {
	return f.counter.Load()
}

// Enter raises the flag and returns a guard that lowers it again.
// Each guard releases exactly once; calling Exit twice is safe.
func (f *ScopeFlag) Enter() *ScopeGuard {
	for {
		cur := f.counter.Load()
		if cur == math.MaxUint32 {
			Logger().Error("host function scope entered too many times")
			break
		}
		if f.counter.CompareAndSwap(cur, cur+1) {
			break
		}
	}
	return &ScopeGuard{flag: f}
}

// ScopeGuard lowers the flag when released.
type ScopeGuard struct {
	flag     *ScopeFlag
	released atomic.Bool
}

// Exit lowers the flag. The counter clamps at zero: an unbalanced release is
// logged rather than wrapping around.
func (g *ScopeGuard) Exit() {
	if g == nil || g.flag == nil {
		return
	}
	if !g.released.CompareAndSwap(false, true) {
		return
	}
	for {
		cur := g.flag.counter.Load()
		if cur == 0 {
			Logger().Error("host function scope exited more times than entered")
			return
		}
		if g.flag.counter.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}
