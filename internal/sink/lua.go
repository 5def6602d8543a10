package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const (
	// HandlerFunc is the global function a script must define. It is called
	// once per command with the command string.
	HandlerFunc = "on_command"

	// DefaultCallTimeout bounds one on_command call.
	DefaultCallTimeout = 100 * time.Millisecond
)

// ErrSinkClosed is returned by Lua methods after Close.
var ErrSinkClosed = errors.New("lua sink is closed")

// Forwarder receives commands a script passes to send().
type Forwarder interface {
	Send(command string)
}

// Lua hands each command to a script's on_command function.
//
// The script runs in a sandbox: only the base, table, string and math
// libraries are open, file loading and random numbers are removed. Scripts
// get two helpers:
//
//	send(cmd)  forward cmd to the next sink, if one is configured
//	log(msg)   write msg to the structured log
//
// A script can rewrite, filter or fan out commands by choosing what it
// passes to send. Calls are serialized; a failing or slow call is logged and
// the command is lost.
type Lua struct {
	mu      sync.Mutex
	L       *lua.LState
	next    Forwarder
	timeout time.Duration
	closed  bool
}

// LuaOption configures a Lua sink.
type LuaOption func(*Lua)

// WithForward sets the sink that receives send() calls.
func WithForward(next Forwarder) LuaOption {
	return func(s *Lua) {
		s.next = next
	}
}

// WithCallTimeout bounds each on_command call. Non-positive values keep the default.
func WithCallTimeout(d time.Duration) LuaOption {
	return func(s *Lua) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewLua compiles script and checks that it defines on_command.
func NewLua(script string, opts ...LuaOption) (*Lua, error) {
	s := &Lua{timeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // opened selectively below
	})
	openSafeLibs(L)
	L.SetGlobal("send", L.NewFunction(s.luaSend))
	L.SetGlobal("log", L.NewFunction(luaLog))

	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}

	if fn := L.GetGlobal(HandlerFunc); fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("script must define a %q function", HandlerFunc)
	}

	s.L = L
	return s, nil
}

// LoadLua reads a script file and calls NewLua.
func LoadLua(path string, opts ...LuaOption) (*Lua, error) {
	script, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return NewLua(string(script), opts...)
}

// Send calls on_command(command). Errors are logged.
func (s *Lua) Send(command string) {
	if err := s.Call(command); err != nil {
		slog.Warn("lua sink failed", "command", command, "error", err)
	}
}

// Call calls on_command(command) and returns any script error.
func (s *Lua) Call(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := s.L.CallByParam(lua.P{
		Fn:      s.L.GetGlobal(HandlerFunc),
		NRet:    0,
		Protect: true,
	}, lua.LString(command))
	if err != nil {
		return fmt.Errorf("%s: %w", HandlerFunc, err)
	}
	return nil
}

// Close releases the Lua state. Safe to call more than once.
func (s *Lua) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

// luaSend implements send(cmd). Runs with s.mu held by Call.
func (s *Lua) luaSend(L *lua.LState) int {
	command := L.CheckString(1)
	if s.next != nil {
		s.next.Send(command)
	}
	return 0
}

func luaLog(L *lua.LState) int {
	slog.Info("lua sink", "message", L.CheckString(1))
	return 0
}

// openSafeLibs loads only the safe standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)

	// Remove functions that load code from outside the script
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("print", lua.LNil) // use log() instead

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Remove non-deterministic math functions
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		L.SetField(tbl, "random", lua.LNil)
		L.SetField(tbl, "randomseed", lua.LNil)
	}
}
