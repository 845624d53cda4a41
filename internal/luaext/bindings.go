package luaext

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/flowlua/internal/detect"
	"github.com/roach88/flowlua/internal/flowvar"
	"github.com/roach88/flowlua/internal/metrics"
)

// Names of the globals bound into every runtime.
const (
	BindingFlowvarGet  = "ScFlowvarGet"
	BindingFlowvarSet  = "ScFlowvarSet"
	BindingFlowintGet  = "ScFlowintGet"
	BindingFlowintSet  = "ScFlowintSet"
	BindingFlowintIncr = "ScFlowintIncr"
	BindingFlowintDecr = "ScFlowintDecr"
)

// Bindings lists the bound global names in registration order.
var Bindings = []string{
	BindingFlowvarGet,
	BindingFlowvarSet,
	BindingFlowintGet,
	BindingFlowintSet,
	BindingFlowintIncr,
	BindingFlowintDecr,
}

// RegisterBindings binds the six flow variable functions as globals of this
// runtime's state. Calling it again is a no-op.
func (r *Runtime) RegisterBindings() {
	if r.registered {
		return
	}
	fns := map[string]lua.LGFunction{
		BindingFlowvarGet:  r.flowvarGet,
		BindingFlowvarSet:  r.flowvarSet,
		BindingFlowintGet:  r.flowintGet,
		BindingFlowintSet:  r.flowintSet,
		BindingFlowintIncr: r.flowintIncr,
		BindingFlowintDecr: r.flowintDecr,
	}
	for _, name := range Bindings {
		r.state.SetGlobal(name, r.state.NewFunction(fns[name]))
	}
	r.registered = true
}

// ScFlowvarGet(id) -> string | nil, msg
func (r *Runtime) flowvarGet(L *lua.LState) int {
	c := r.begin(L, BindingFlowvarGet)
	if err := c.cc.CheckRead(); err != nil {
		return c.fail(err)
	}
	id, ok := argID(L, 1)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg1NotNumber))
	}
	v, err := flowvar.GetString(c.cc, id)
	if err != nil {
		return c.fail(err)
	}
	return c.ok(string(v), lua.LString(v))
}

// ScFlowvarSet(id, value, len) -> nothing | nil, msg
func (r *Runtime) flowvarSet(L *lua.LState) int {
	c := r.begin(L, BindingFlowvarSet)
	if err := c.cc.CheckWrite(); err != nil {
		return c.fail(err)
	}
	id, ok := argID(L, 1)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg1NotNumber))
	}
	value, ok := argString(L, 2)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg2NotString))
	}
	length, ok := argLength(L, 3)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg3NotNumber))
	}
	if err := flowvar.SetString(c.cc, id, []byte(value), length); err != nil {
		return c.fail(err)
	}
	return c.ok(nil)
}

// ScFlowintGet(id) -> number | nil, msg
func (r *Runtime) flowintGet(L *lua.LState) int {
	c := r.begin(L, BindingFlowintGet)
	if err := c.cc.CheckRead(); err != nil {
		return c.fail(err)
	}
	id, ok := argID(L, 1)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg1NotNumber))
	}
	v, err := flowvar.GetInt(c.cc, id)
	if err != nil {
		return c.fail(err)
	}
	return c.ok(v, lua.LNumber(v))
}

// ScFlowintSet(id, value) -> nothing | nil, msg
func (r *Runtime) flowintSet(L *lua.LState) int {
	c := r.begin(L, BindingFlowintSet)
	if err := c.cc.CheckWrite(); err != nil {
		return c.fail(err)
	}
	id, ok := argID(L, 1)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg1NotNumber))
	}
	value, ok := argValue(L, 2)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg2NotNumber))
	}
	if err := flowvar.SetInt(c.cc, id, value); err != nil {
		return c.fail(err)
	}
	return c.ok(nil)
}

// ScFlowintIncr(id) -> number | nil, msg
func (r *Runtime) flowintIncr(L *lua.LState) int {
	return r.update(L, BindingFlowintIncr, flowvar.Incr)
}

// ScFlowintDecr(id) -> number | nil, msg
func (r *Runtime) flowintDecr(L *lua.LState) int {
	return r.update(L, BindingFlowintDecr, flowvar.Decr)
}

func (r *Runtime) update(L *lua.LState, name string, op func(flowvar.CallContext, int) (uint32, error)) int {
	c := r.begin(L, name)
	if err := c.cc.CheckRead(); err != nil {
		return c.fail(err)
	}
	id, ok := argID(L, 1)
	if !ok {
		return c.fail(flowvar.NewArgumentError(flowvar.MsgArg1NotNumber))
	}
	v, err := op(c.cc, id)
	if err != nil {
		return c.fail(err)
	}
	return c.ok(v, lua.LNumber(v))
}

// call is the bookkeeping of one binding invocation.
type call struct {
	r    *Runtime
	L    *lua.LState
	name string
	cc   flowvar.CallContext
	args []any
}

func (r *Runtime) begin(L *lua.LState, name string) *call {
	n := L.GetTop()
	args := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		args = append(args, auditValue(L.Get(i)))
	}
	return &call{r: r, L: L, name: name, cc: r.cc, args: args}
}

// ok pushes rets and records the call.
func (c *call) ok(result any, rets ...lua.LValue) int {
	c.record(result, "")
	metrics.RecordBindingCall(c.name, metrics.ResultOK)
	for _, v := range rets {
		c.L.Push(v)
	}
	return len(rets)
}

// fail pushes (nil, message) and records the call. Engine faults are
// logged as well.
func (c *call) fail(err error) int {
	msg := flowvar.MessageOf(err)
	c.record(nil, msg)

	code := flowvar.CodeOf(err)
	metrics.RecordBindingCall(c.name, strings.ToLower(string(code)))
	switch {
	case flowvar.IsMissingContext(err):
		c.r.logger.Error("flow variable binding called without context",
			"binding", c.name,
			"code", code,
			"error", err,
		)
	case flowvar.IsOutOfMemory(err):
		c.r.logger.Error("flowvar memcap exhausted",
			"binding", c.name,
			"flow", c.cc.Flow.Token(),
			"error", err,
		)
	case flowvar.IsEngineFault(err):
		c.r.logger.Error("flow variable binding failed",
			"binding", c.name,
			"code", code,
			"error", err,
		)
	}

	c.L.Push(lua.LNil)
	c.L.Push(lua.LString(msg))
	return 2
}

func (c *call) record(result any, errMsg string) {
	var token string
	if c.cc.Flow != nil {
		token = c.cc.Flow.Token()
	}
	c.cc.Detect.Record(detect.Call{
		FlowToken: token,
		Binding:   c.name,
		Args:      c.args,
		Result:    result,
		Err:       errMsg,
	})
}
