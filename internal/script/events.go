package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/randomizedcoder/go-exec-stream/internal/stream"
)

// eventTable converts an event into the table handed to Lua callbacks.
func eventTable(L *lua.LState, ev stream.Event) *lua.LTable {
	t := L.NewTable()
	switch ev := ev.(type) {
	case stream.LineEvent:
		t.RawSetString("line", lua.LString(ev.Line))
		t.RawSetString("sequence_number", lua.LNumber(ev.Seq))
		t.RawSetString("elapsed_seconds", lua.LNumber(ev.Elapsed))
		t.RawSetString("lines_per_second", lua.LNumber(ev.LinesPerSecond))
	case stream.ErrorEvent:
		t.RawSetString("error", lua.LString(ev.Message))
		t.RawSetString("sequence_number", lua.LNumber(ev.Seq))
		t.RawSetString("stream", lua.LString(ev.Stream.String()))
	case stream.FinalEvent:
		t.RawSetString("final", lua.LTrue)
		t.RawSetString("success", lua.LBool(ev.Success))
		t.RawSetString("exit_code", lua.LNumber(ev.ExitCode))
		t.RawSetString("total_lines", lua.LNumber(ev.TotalLines))
		t.RawSetString("total_time", lua.LNumber(ev.TotalTime))
		t.RawSetString("full_output", lua.LString(ev.FullOutput))
	}
	return t
}

// luaCallback adapts a Lua function to a stream.Callback. A Lua error in
// fn is returned to the dispatcher, which wraps it in a CallbackError.
func luaCallback(L *lua.LState, fn *lua.LFunction) stream.Callback {
	return func(_ context.Context, ev stream.Event) error {
		err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, eventTable(L, ev))
		if err != nil {
			return fmt.Errorf("lua: %w", err)
		}
		return nil
	}
}
