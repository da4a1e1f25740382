package engine

import (
	"context"

	"github.com/wippyai/contract-engine/errors"
	"github.com/wippyai/contract-engine/host"
)

// dispatch runs one host function call on behalf of a backend: it enters the
// execution scope, charges the function's declared cost through Host.Gas,
// invokes the table entry, and records any failure on the instance so the
// invoke path can recover it across the backend's trap boundary. The
// returned error must be raised as the backend's native fault.
func (i *Instance) dispatch(ctx context.Context, fn host.Function, fc host.FunctionContext, args []uint64) (uint64, error) {
	guard := i.host.Flag().Enter()
	defer guard.Exit()

	if fn.Name != gasFunctionName {
		cost, ok := i.engine.cfg.HostFunctionCosts[fn.Name]
		if ok {
			weights := make([]uint32, len(args))
			for n, arg := range args {
				weights[n] = uint32(arg)
			}
			if err := i.host.Gas(ctx, fc, cost.Calculate(weights)); err != nil {
				return 0, i.failHostCall(fn.Name, err)
			}
		}
	}

	ret, err := fn.Invoke(ctx, i.host, fc, args)
	if err != nil {
		return 0, i.failHostCall(fn.Name, err)
	}
	return ret, nil
}

func (i *Instance) failHostCall(name string, err error) error {
	carrier := &errors.HostError{Function: name, Err: err}
	i.setHostError(carrier)
	return carrier
}
