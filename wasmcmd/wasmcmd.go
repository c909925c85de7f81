// Package wasmcmd serves a WASM module's exports as Hostlink commands.
//
// The guest ABI matches the packed-pointer convention: arguments are
// written into guest memory obtained from the module's "allocate"
// export, the command export is called with (ptr, len), and its uint64
// return packs the response location as ptr<<32|len. Responses are JSON
// and map directly onto command handler results.
package wasmcmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/hostlink-dev/hostlink/command"
)

// Executor manages the lifecycle of a WASM command module.
type Executor struct {
	runtime wazero.Runtime
	module  api.Module
}

// NewExecutor instantiates the given WASM module in a fresh runtime.
func NewExecutor(ctx context.Context, wasmBytes []byte) (*Executor, error) {
	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return &Executor{runtime: rt, module: mod}, nil
}

// Close releases resources held by the executor.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Handler returns a command.Handler backed by the named guest export.
func (e *Executor) Handler(export string) command.Handler {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		packed, err := e.callRaw(ctx, export, args)
		if err != nil {
			return nil, err
		}
		return e.readPacked(packed)
	}
}

// Commands returns registry options serving the given exports as
// commands named after them, so wasm-backed commands register exactly
// like native ones.
func (e *Executor) Commands(exports ...string) []command.RegistryOption {
	opts := make([]command.RegistryOption, 0, len(exports))
	for _, export := range exports {
		opts = append(opts, command.WithHandler(export, e.Handler(export)))
	}
	return opts
}

func (e *Executor) callRaw(ctx context.Context, name string, input []byte) (uint64, error) {
	f := e.module.ExportedFunction(name)
	if f == nil {
		return 0, fmt.Errorf("export %q not found", name)
	}

	var results []uint64
	var err error

	if len(input) == 0 {
		results, err = f.Call(ctx)
	} else {
		allocate := e.module.ExportedFunction("allocate")
		if allocate == nil {
			return 0, fmt.Errorf("guest does not export 'allocate'")
		}
		resAlloc, errAlloc := allocate.Call(ctx, uint64(len(input)))
		if errAlloc != nil {
			return 0, fmt.Errorf("failed to allocate in guest: %w", errAlloc)
		}
		if len(resAlloc) == 0 {
			return 0, fmt.Errorf("allocate returned no results")
		}
		ptr := uint32(resAlloc[0])
		if !e.module.Memory().Write(ptr, input) {
			return 0, fmt.Errorf("failed to write input to guest memory")
		}
		results, err = f.Call(ctx, uint64(ptr), uint64(len(input)))
	}

	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

func (e *Executor) readPacked(packed uint64) (json.RawMessage, error) {
	ptr := uint32(packed >> 32)
	length := uint32(packed)
	if ptr == 0 || length == 0 {
		return nil, fmt.Errorf("null response from guest")
	}
	data, ok := e.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("failed to read response from memory")
	}
	// Copy out of linear memory; the guest may move or reuse it.
	out := make(json.RawMessage, length)
	copy(out, data)
	return out, nil
}
