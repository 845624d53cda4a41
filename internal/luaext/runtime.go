// Package luaext embeds the Lua runtime that rule scripts run in and binds
// the flow variable accessors into it.
//
// A Runtime wraps one *lua.LState and is owned by a single worker goroutine.
// The engine publishes the call context before each script invocation and
// resets it afterwards; the bound functions read it from the runtime that
// invoked them, so runtimes never observe each other's context.
package luaext

import (
	"errors"
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/flowlua/internal/detect"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/flowlock"
	"github.com/roach88/flowlua/internal/flowvar"
	"github.com/roach88/flowlua/internal/varid"
)

// ErrNotFunction is returned by Call when the named global is not a function.
var ErrNotFunction = errors.New("global is not a function")

// Runtime is one embedded Lua state plus the call context its bindings read.
// Not safe for concurrent use.
type Runtime struct {
	state      *lua.LState
	logger     *slog.Logger
	cc         flowvar.CallContext
	registered bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for engine faults raised inside bindings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Lua state with the base, table, string and math
// libraries. Scripts get no file, io or os access.
func NewRuntime(opts ...Option) *Runtime {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}

	r := &Runtime{
		state:  L,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the underlying Lua state.
func (r *Runtime) State() *lua.LState { return r.state }

// Close releases the Lua state.
func (r *Runtime) Close() { r.state.Close() }

// PublishContext sets the context of the next invocation.
func (r *Runtime) PublishContext(table *varid.Table, det *detect.ThreadCtx, f *flow.Flow, hint flowlock.Hint) {
	r.cc = flowvar.CallContext{
		Table:  table,
		Detect: det,
		Flow:   f,
		Hint:   hint,
	}
}

// ResetContext clears the published context so a finished flow is no longer
// reachable from the state.
func (r *Runtime) ResetContext() {
	r.cc = flowvar.CallContext{}
}

// Context returns the currently published context.
func (r *Runtime) Context() flowvar.CallContext { return r.cc }

// Load executes script in the state, defining its globals.
func (r *Runtime) Load(script string) error {
	if err := r.state.DoString(script); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	return nil
}

// Call invokes global function name with args in protected mode and returns
// its first result. Lua errors raised by the script come back as
// *lua.ApiError.
func (r *Runtime) Call(name string, args ...lua.LValue) (lua.LValue, error) {
	fn, ok := r.state.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, fmt.Errorf("%s: %w", name, ErrNotFunction)
	}
	if err := r.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := r.state.Get(-1)
	r.state.Pop(1)
	return ret, nil
}
