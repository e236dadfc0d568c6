package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lua "github.com/yuin/gopher-lua"

	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E"))
)

func (h *Host) registerGlobals() {
	L := h.L

	L.SetGlobal("verbose", lua.LBool(h.opts.Verbose))
	if h.opts.Target != "" {
		L.SetGlobal("target", lua.LString(h.opts.Target))
	}
	path := lua.LString(absScriptPath(h.opts.ScriptPath))
	dir := lua.LString(scriptDirectory(string(path)))
	for _, name := range []string{"lua_script_path", "script_path"} {
		L.SetGlobal(name, path)
	}
	for _, name := range []string{"lua_script_directory", "script_directory"} {
		L.SetGlobal(name, dir)
	}

	funcs := map[string]lua.LGFunction{
		// Output
		"print":         h.luaPrint,
		"println":       h.luaPrint,
		"print_success": h.luaPrintStyled(successStyle, false),
		"print_error":   h.luaPrintStyled(errorStyle, true),

		// Process execution
		"exec":               h.luaExec,
		"exec_silent":        h.luaExecSilent,
		"exec_streaming":     h.luaExecStreaming,
		"exec_with_callback": h.luaExecCallback(stream.ModeLines),
		"exec_realtime":      h.luaExecCallback(stream.ModeRealtime),
		"which":              h.luaWhich,
		"command_exists":     h.luaCommandExists,

		// Common tools
		"git_clone":   h.luaGitClone,
		"cargo_build": h.luaCargoBuild,

		// Environment
		"get_env": h.luaGetEnv,
		"set_env": h.luaSetEnv,
		"get_cwd": h.luaGetCwd,
		"set_cwd": h.luaSetCwd,

		// Platform
		"get_platform": func(L *lua.LState) int {
			L.Push(lua.LString(process.OSName()))
			return 1
		},
		"is_windows": func(L *lua.LState) int {
			L.Push(lua.LBool(process.IsWindows()))
			return 1
		},
		"is_unix": func(L *lua.LState) int {
			L.Push(lua.LBool(process.IsUnix()))
			return 1
		},
	}
	for name, fn := range funcs {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// =============================================================================
// Output
// =============================================================================

func (h *Host) luaPrint(L *lua.LState) int {
	fmt.Fprintln(h.opts.Stdout, joinArgs(L))
	return 0
}

func (h *Host) luaPrintStyled(style lipgloss.Style, toStderr bool) lua.LGFunction {
	return func(L *lua.LState) int {
		w := h.opts.Stdout
		if toStderr {
			w = h.opts.Stderr
		}
		fmt.Fprintln(w, style.Render(L.CheckString(1)))
		return 0
	}
}

// joinArgs renders every argument with tostring semantics, tab-separated.
func joinArgs(L *lua.LState) string {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	return strings.Join(parts, "\t")
}

// =============================================================================
// Process execution
// =============================================================================

// boolFlag mirrors the 1/0 success convention of the exec result tables.
func boolFlag(b bool) lua.LNumber {
	if b {
		return 1
	}
	return 0
}

func (h *Host) luaExec(L *lua.LState) int {
	return h.execTable(L, "exec", L.CheckString(1))
}

// execTable runs command buffered and pushes
// {exit_code, stdout, stderr, success}.
func (h *Host) execTable(L *lua.LState, name, command string) int {
	h.logger.Debug("script_"+name, "command", command)

	result, err := process.Run(h.runContext(), h.spec(command))
	if err != nil {
		L.RaiseError("%s: %v", name, err)
		return 0
	}

	t := L.NewTable()
	t.RawSetString("exit_code", lua.LNumber(result.ExitCode))
	t.RawSetString("stdout", lua.LString(result.Stdout))
	t.RawSetString("stderr", lua.LString(result.Stderr))
	t.RawSetString("success", boolFlag(result.Success))
	L.Push(t)
	return 1
}

func (h *Host) luaExecSilent(L *lua.LState) int {
	command := L.CheckString(1)
	h.logger.Debug("script_exec_silent", "command", command)

	ok, err := process.RunSilent(h.runContext(), h.spec(command))
	if err != nil {
		L.RaiseError("exec_silent: %v", err)
		return 0
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (h *Host) luaExecStreaming(L *lua.LState) int {
	command := L.CheckString(1)
	h.logger.Debug("script_exec_streaming", "command", command)

	opts := h.opts.Stream
	opts.Mode = stream.ModeLines
	tr, err := stream.RunStreaming(h.runContext(), h.spec(command), h.opts.Stdout, h.opts.Stderr, opts)
	if err != nil {
		L.RaiseError("exec_streaming: %v", err)
		return 0
	}

	t := L.NewTable()
	t.RawSetString("exit_code", lua.LNumber(tr.ExitCode))
	t.RawSetString("success", boolFlag(tr.Success))
	t.RawSetString("output", lua.LString(tr.Output))
	L.Push(t)
	return 1
}

// luaExecCallback implements exec_with_callback(cmd, fn) and
// exec_realtime(cmd, fn). Returns the child's success as a boolean.
func (h *Host) luaExecCallback(mode stream.Mode) lua.LGFunction {
	name := "exec_with_callback"
	if mode == stream.ModeRealtime {
		name = "exec_realtime"
	}
	return func(L *lua.LState) int {
		command := L.CheckString(1)
		fn := L.CheckFunction(2)
		h.logger.Debug("script_"+name, "command", command)

		opts := h.opts.Stream
		opts.Mode = mode
		ok, err := stream.Run(h.runContext(), h.spec(command), luaCallback(L, fn), opts)
		if err != nil {
			L.RaiseError("%s: %v", name, err)
			return 0
		}
		L.Push(lua.LBool(ok))
		return 1
	}
}

func (h *Host) luaWhich(L *lua.LState) int {
	path, ok := process.WhichIn(h.runContext(), h.spec(""), L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(path))
	return 1
}

func (h *Host) luaCommandExists(L *lua.LState) int {
	L.Push(lua.LBool(process.CommandExistsIn(h.runContext(), h.spec(""), L.CheckString(1))))
	return 1
}

// luaGitClone runs `git clone url [dir]` and returns whether it succeeded.
func (h *Host) luaGitClone(L *lua.LState) int {
	command := "git clone " + L.CheckString(1)
	if dir := L.OptString(2, ""); dir != "" {
		command += " " + dir
	}
	h.logger.Debug("script_git_clone", "command", command)

	result, err := process.Run(h.runContext(), h.spec(command))
	if err != nil {
		L.RaiseError("git_clone: %v", err)
		return 0
	}
	L.Push(lua.LBool(result.Success))
	return 1
}

// luaCargoBuild runs `cargo build`, with --release when asked, and returns
// the same table as exec.
func (h *Host) luaCargoBuild(L *lua.LState) int {
	command := "cargo build"
	if L.OptBool(1, false) {
		command += " --release"
	}
	return h.execTable(L, "cargo_build", command)
}

// =============================================================================
// Environment
// =============================================================================

// luaGetEnv reads the script's overrides first, then the process environment.
func (h *Host) luaGetEnv(L *lua.LState) int {
	name := L.CheckString(1)
	for i := len(h.env) - 1; i >= 0; i-- {
		if k, v, _ := strings.Cut(h.env[i], "="); k == name {
			L.Push(lua.LString(v))
			return 1
		}
	}
	if v, ok := os.LookupEnv(name); ok {
		L.Push(lua.LString(v))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

// luaSetEnv affects commands started by this script, not the host process.
func (h *Host) luaSetEnv(L *lua.LState) int {
	name := L.CheckString(1)
	value := L.CheckString(2)
	if name == "" || strings.Contains(name, "=") {
		L.ArgError(1, "invalid variable name")
		return 0
	}
	h.env = append(h.env, name+"="+value)
	return 0
}

func (h *Host) luaGetCwd(L *lua.LState) int {
	if h.dir != "" {
		L.Push(lua.LString(h.dir))
		return 1
	}
	wd, err := os.Getwd()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(wd))
	return 1
}

// luaSetCwd changes the directory of subsequent commands. Relative paths
// resolve against the previous set_cwd target.
func (h *Host) luaSetCwd(L *lua.LState) int {
	path := L.CheckString(1)
	if h.dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(h.dir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		L.RaiseError("set_cwd: %v", err)
		return 0
	}
	if !info.IsDir() {
		L.RaiseError("set_cwd: %s is not a directory", path)
		return 0
	}
	h.dir = path
	L.Push(lua.LTrue)
	return 1
}
