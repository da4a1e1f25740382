package main

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/contract-engine/engine"
	"github.com/wippyai/contract-engine/errors"
	"github.com/wippyai/contract-engine/host"
)

func main() {
	var (
		wasmFile  = flag.String("wasm", "", "Path to contract wasm file")
		funcName  = flag.String("func", "call", "Exported function to invoke")
		argsStr   = flag.String("args", "", "Comma-separated i32 arguments")
		modeStr   = flag.String("mode", "interpreted", "Execution mode: interpreted, compiled, jit")
		gasLimit  = flag.Uint64("gas-limit", 0, "Gas limit (0 = unlimited)")
		list      = flag.Bool("list", false, "List exported functions and exit")
		printMode = flag.Bool("print", false, "Enable test-only host functions (casper_print)")
		verbose   = flag.Bool("v", false, "Verbose engine logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: runwasm -wasm <file.wasm> [-func name] [-args 1,2,3] [-mode interpreted|compiled|jit]")
		fmt.Fprintln(os.Stderr, "       runwasm -wasm <file.wasm> -list")
		os.Exit(1)
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		engine.SetLogger(l)
	}

	if err := run(*wasmFile, *funcName, *argsStr, *modeStr, *gasLimit, *list, *printMode); err != nil {
		var revert *errors.Revert
		if stderrors.As(err, &revert) {
			fmt.Printf("Reverted with status %d\n", revert.Code)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, argsStr, modeStr string, gasLimit uint64, listOnly, testMode bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	mode, err := parseMode(modeStr)
	if err != nil {
		return err
	}

	cfg := engine.DefaultConfig()
	cfg.Mode = mode
	cfg.TestSupport = testMode

	e, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer e.Close(ctx)

	mod, err := e.Preprocess(ctx, data)
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}

	fmt.Printf("Module: %s (%d bytes, mode %s)\n", wasmFile, len(data), engine.ModeName(mode))
	fmt.Printf("\nExported functions:\n")
	for _, exp := range mod.Exports() {
		var params []string
		for _, p := range exp.Params {
			params = append(params, p.String())
		}
		result := ""
		if len(exp.Results) > 0 {
			result = " -> " + exp.Results[0].String()
		}
		fmt.Printf("  %s(%s)%s\n", exp.Name, strings.Join(params, ", "), result)
	}

	if listOnly {
		return nil
	}

	args, err := parseArgs(argsStr)
	if err != nil {
		return err
	}

	h := &cliHost{gasLimit: gasLimit, store: make(map[string][]byte)}
	inst, err := e.InstanceAndMemory(ctx, mod, h)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argsStr)
	ret, err := inst.InvokeExport(ctx, funcName, args)

	fmt.Printf("Gas consumed: %d\n", h.consumed)
	if len(h.trace) > 0 {
		fmt.Printf("Host calls: %s\n", strings.Join(h.trace, ", "))
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	if ret != nil {
		fmt.Printf("Result: %s\n", ret)
	}
	if h.returned != nil {
		fmt.Printf("Returned value: %x\n", h.returned)
	}
	return nil
}

func parseMode(s string) (engine.ExecutionMode, error) {
	switch s {
	case "interpreted":
		return engine.Interpreted{}, nil
	case "compiled":
		return engine.NativeCompiled{Instrument: true}, nil
	case "jit":
		return engine.JitCompiled{}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", s)
	}
}

func parseArgs(s string) ([]engine.Value, error) {
	if s == "" {
		return nil, nil
	}
	var args []engine.Value
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", part, err)
		}
		args = append(args, engine.I32(int32(n)))
	}
	return args, nil
}

// cliHost backs contract execution with an in-memory store. Functions the
// store cannot meaningfully serve stay unimplemented.
type cliHost struct {
	host.Unimplemented
	gasLimit uint64
	consumed uint64
	store    map[string][]byte
	buffer   []byte
	returned []byte
	trace    []string
}

func (h *cliHost) Gas(ctx context.Context, fc host.FunctionContext, amount uint32) error {
	h.consumed += uint64(amount)
	if h.gasLimit > 0 && h.consumed > h.gasLimit {
		return errors.GasExhausted()
	}
	return nil
}

func (h *cliHost) Revert(ctx context.Context, fc host.FunctionContext, status uint32) error {
	h.trace = append(h.trace, "casper_revert")
	return &errors.Revert{Code: status}
}

func (h *cliHost) Ret(ctx context.Context, fc host.FunctionContext, valuePtr, valueSize uint32) error {
	h.trace = append(h.trace, "casper_ret")
	data, err := fc.MemoryRead(valuePtr, valueSize)
	if err != nil {
		return err
	}
	h.returned = data
	return nil
}

func (h *cliHost) Write(ctx context.Context, fc host.FunctionContext, keyPtr, keySize, valuePtr, valueSize uint32) error {
	h.trace = append(h.trace, "casper_write")
	key, err := fc.MemoryRead(keyPtr, keySize)
	if err != nil {
		return err
	}
	value, err := fc.MemoryRead(valuePtr, valueSize)
	if err != nil {
		return err
	}
	h.store[string(key)] = value
	return nil
}

func (h *cliHost) ReadValue(ctx context.Context, fc host.FunctionContext, keyPtr, keySize, outputSizePtr uint32) (int32, error) {
	h.trace = append(h.trace, "casper_read_value")
	key, err := fc.MemoryRead(keyPtr, keySize)
	if err != nil {
		return 0, err
	}
	value, ok := h.store[string(key)]
	if !ok {
		return 1, nil
	}
	h.buffer = value
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(value)))
	if err := fc.MemoryWrite(outputSizePtr, size[:]); err != nil {
		return 0, err
	}
	return 0, nil
}

func (h *cliHost) ReadHostBuffer(ctx context.Context, fc host.FunctionContext, destPtr, destSize, bytesWrittenPtr uint32) (int32, error) {
	h.trace = append(h.trace, "casper_read_host_buffer")
	if h.buffer == nil {
		return 1, nil
	}
	n := len(h.buffer)
	if uint32(n) > destSize {
		n = int(destSize)
	}
	if err := fc.MemoryWrite(destPtr, h.buffer[:n]); err != nil {
		return 0, err
	}
	var written [4]byte
	binary.LittleEndian.PutUint32(written[:], uint32(n))
	if err := fc.MemoryWrite(bytesWrittenPtr, written[:]); err != nil {
		return 0, err
	}
	h.buffer = nil
	return 0, nil
}

func (h *cliHost) HasKey(ctx context.Context, fc host.FunctionContext, namePtr, nameSize uint32) (int32, error) {
	h.trace = append(h.trace, "casper_has_key")
	name, err := fc.MemoryRead(namePtr, nameSize)
	if err != nil {
		return 0, err
	}
	if _, ok := h.store[string(name)]; ok {
		return 0, nil
	}
	return 1, nil
}

func (h *cliHost) GetBlocktime(ctx context.Context, fc host.FunctionContext, destPtr uint32) error {
	h.trace = append(h.trace, "casper_get_blocktime")
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(time.Now().UnixMilli()))
	return fc.MemoryWrite(destPtr, ts[:])
}

func (h *cliHost) GetPhase(ctx context.Context, fc host.FunctionContext, destPtr uint32) error {
	h.trace = append(h.trace, "casper_get_phase")
	// Session phase.
	return fc.MemoryWrite(destPtr, []byte{2})
}

func (h *cliHost) Print(ctx context.Context, fc host.FunctionContext, textPtr, textSize uint32) error {
	h.trace = append(h.trace, "casper_print")
	text, err := fc.MemoryRead(textPtr, textSize)
	if err != nil {
		return err
	}
	fmt.Printf("[contract] %s\n", text)
	return nil
}
