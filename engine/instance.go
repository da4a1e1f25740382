package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/contract-engine/errors"
	"github.com/wippyai/contract-engine/host"
)

type instanceState int32

const (
	stateCreated instanceState = iota
	stateLinked
	stateRunning
	stateReturned
	stateTrapped
)

func (s instanceState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateLinked:
		return "linked"
	case stateRunning:
		return "running"
	case stateReturned:
		return "returned"
	case stateTrapped:
		return "trapped"
	default:
		return "unknown"
	}
}

// Instance is one linked execution of a module against a host. It moves
// through created, linked, running, and finally returned or trapped; a
// trapped instance refuses further invocation. An Instance is not safe for
// concurrent invocation.
type Instance struct {
	engine *WasmEngine
	mod    *Module
	host   host.Host
	be     backendInstance

	state atomic.Int32

	hostErrMu sync.Mutex
	hostErr   error
}

// Memory returns the instance's linear memory adapter.
func (i *Instance) Memory() host.FunctionContext {
	return i.be.memory()
}

// Close releases the instance's backend resources.
func (i *Instance) Close(ctx context.Context) error {
	return i.be.close(ctx)
}

// setHostError records the first typed error raised by host dispatch during
// the current invocation. Later errors are dropped: the first failure is the
// one that aborted execution.
func (i *Instance) setHostError(err error) {
	i.hostErrMu.Lock()
	defer i.hostErrMu.Unlock()
	if i.hostErr == nil {
		i.hostErr = err
	}
}

func (i *Instance) takeHostError() error {
	i.hostErrMu.Lock()
	defer i.hostErrMu.Unlock()
	err := i.hostErr
	i.hostErr = nil
	return err
}

// InvokeExport calls an exported function. The export must exist and the
// argument count and types must match its signature before any backend work
// happens. Backend faults come back as typed errors; a host function failure
// during the call is recovered in preference to the backend's opaque trap.
func (i *Instance) InvokeExport(ctx context.Context, name string, args []Value) (*Value, error) {
	funcIdx, ok := i.mod.decoded.ExportedFunc(name)
	if !ok {
		return nil, errors.ExportNotFound(name)
	}
	ft := i.mod.decoded.GetFuncType(funcIdx)
	if ft == nil {
		return nil, errors.InvalidBinary(fmt.Sprintf("export %q has no type", name), nil)
	}
	if len(args) != len(ft.Params) {
		return nil, errors.SignatureMismatch(name,
			fmt.Sprintf("called with %d arguments, signature has %d parameters", len(args), len(ft.Params)))
	}
	for n, arg := range args {
		if arg.Type() != ft.Params[n] {
			return nil, errors.SignatureMismatch(name,
				fmt.Sprintf("argument %d is %s, signature wants %s", n, arg.Type(), ft.Params[n]))
		}
	}
	if len(ft.Results) > 1 {
		return nil, errors.SignatureMismatch(name,
			fmt.Sprintf("signature has %d results, at most 1 is supported", len(ft.Results)))
	}

	if !i.state.CompareAndSwap(int32(stateLinked), int32(stateRunning)) &&
		!i.state.CompareAndSwap(int32(stateReturned), int32(stateRunning)) {
		return nil, errors.InstanceState(instanceState(i.state.Load()).String())
	}

	hasResult := len(ft.Results) == 1
	ret, err := i.be.invoke(ctx, name, args, hasResult)
	if err != nil {
		i.state.Store(int32(stateTrapped))
		if hostErr := i.takeHostError(); hostErr != nil {
			Logger().Debug("host error recovered across trap boundary",
				zap.String("export", name), zap.Error(hostErr))
			return nil, hostErr
		}
		return nil, i.classifyFault(err)
	}
	i.takeHostError()
	i.state.Store(int32(stateReturned))

	if !hasResult {
		return nil, nil
	}
	v := valueFromRaw(ft.Results[0], ret)
	return &v, nil
}

// classifyFault turns a backend failure into a typed runtime error.
func (i *Instance) classifyFault(err error) error {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return errors.Trap(err)
}
