package engine_test

import (
	"testing"

	"github.com/wippyai/contract-engine/engine"
	"github.com/wippyai/contract-engine/errors"
)

func TestNewResolverProtocolVersion(t *testing.T) {
	cfg := engine.DefaultConfig()

	if _, err := engine.NewResolver(engine.ProtocolVersion{Major: 1, Minor: 5, Patch: 2}, cfg); err != nil {
		t.Errorf("1.5.2 rejected: %v", err)
	}
	_, err := engine.NewResolver(engine.ProtocolVersion{Major: 2}, cfg)
	wantKind(t, err, errors.KindInvalidInput)
}

func TestResolve(t *testing.T) {
	r, err := engine.NewResolver(engine.ProtocolVersion{Major: 1}, engine.DefaultConfig())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if _, err := r.Resolve("env", "casper_revert"); err != nil {
		t.Errorf("casper_revert unresolved: %v", err)
	}
	if _, err := r.Resolve("env", "gas"); err != nil {
		t.Errorf("gas unresolved: %v", err)
	}

	_, err = r.Resolve("env", "casper_call_contract")
	wantKind(t, err, errors.KindUnknownImport)

	_, err = r.Resolve("wasi_snapshot_preview1", "fd_write")
	wantKind(t, err, errors.KindUnknownImport)

	// Test-only functions need TestSupport.
	_, err = r.Resolve("env", "casper_print")
	wantKind(t, err, errors.KindUnknownImport)
}
