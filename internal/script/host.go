// Package script runs Lua build scripts that drive the process executor.
//
// A Host owns one gopher-lua state. The state is not goroutine-safe, so
// every exported method locks the host and Lua callbacks passed to
// exec_with_callback or exec_realtime run on the goroutine that called
// into Lua.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
)

// ErrHostClosed is returned when operating on a closed host.
var ErrHostClosed = errors.New("script host is closed")

// Options configures a Host.
type Options struct {
	Verbose    bool
	Target     string // exposed as the `target` global; nil in Lua when empty
	ScriptPath string // exposed as `lua_script_path` and `lua_script_directory`

	// Dir and Env seed the working directory and extra environment of every
	// command the script runs. set_cwd and set_env change them.
	Dir string
	Env []string

	// Stdout and Stderr receive print output and exec_streaming echoes.
	// Nil means os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Stream is passed to every streaming run (mode is set per call).
	Stream stream.Options

	Logger *slog.Logger
}

// Host wraps a gopher-lua state with the executor functions registered.
type Host struct {
	L *lua.LState

	mu     sync.Mutex
	closed bool

	opts   Options
	dir    string
	env    []string
	logger *slog.Logger
}

// NewHost creates a Lua state with the safe standard libraries and the
// executor globals installed.
func NewHost(opts Options) *Host {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Stream.Logger == nil {
		opts.Stream.Logger = logger
	}

	h := &Host{
		L:      lua.NewState(lua.Options{SkipOpenLibs: true}),
		opts:   opts,
		dir:    opts.Dir,
		env:    append([]string(nil), opts.Env...),
		logger: logger,
	}
	openSafeLibraries(h.L)
	h.registerGlobals()
	return h
}

// openSafeLibraries opens base, table, string and math. io, os, debug and
// package stay closed; scripts reach the system through the exec globals.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// DoFile executes a Lua file. ctx bounds the script and every command it
// starts; cancelling it kills the running child and stops the script.
func (h *Host) DoFile(ctx context.Context, path string) error {
	return h.do(ctx, func() error { return h.L.DoFile(path) })
}

// DoString executes a Lua chunk.
func (h *Host) DoString(ctx context.Context, code string) error {
	return h.do(ctx, func() error { return h.L.DoString(code) })
}

func (h *Host) do(ctx context.Context, fn func() error) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}

	h.L.SetContext(ctx)
	defer h.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close releases the Lua state. It is safe to call more than once.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.L.Close()
	h.closed = true
	return nil
}

// runContext returns the context of the running chunk.
func (h *Host) runContext() context.Context {
	if ctx := h.L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// spec builds a piped command spec carrying the script's dir and env.
func (h *Host) spec(command string) process.CommandSpec {
	spec := process.NewCommandSpec(command)
	spec.Dir = h.dir
	spec.Env = append([]string(nil), h.env...)
	return spec
}

// absScriptPath resolves path against the working directory. Empty stays empty.
func absScriptPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func scriptDirectory(path string) string {
	if path == "" {
		return "."
	}
	return filepath.Dir(path)
}
