package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hooks owns one sandboxed LState holding every loaded content hook script.
// The mutex serializes calls into the single-threaded Lua VM.
type Hooks struct {
	mu     sync.Mutex
	state  *lua.LState
	logger *zap.Logger
}

// NewHooks creates an empty Hooks manager.
//
// Precondition: logger must be non-nil.
func NewHooks(logger *zap.Logger) *Hooks {
	return &Hooks{logger: logger}
}

// Load creates a sandboxed VM and executes every *.lua file in scriptDir in
// lexicographic order, replacing any previously loaded VM.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Hook functions defined by the scripts are callable; returns
// an error on any Lua load failure.
func (h *Hooks) Load(scriptDir string, instLimit int) error {
	L := NewSandboxedState(instLimit)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	h.mu.Lock()
	if h.state != nil {
		h.state.Close()
	}
	h.state = L
	h.mu.Unlock()

	h.logger.Info("hook scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// DropOverride calls the named hook function with the enemy id and converts
// its return value into a drop list.
//
// Postcondition: Returns (drops, true, nil) when the hook returned a table of
// item id strings, (nil, false, nil) when the hook is absent or returned nil,
// and an error on a Lua runtime failure or a malformed return value.
func (h *Hooks) DropOverride(hook, enemyID string) ([]string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == nil {
		return nil, false, nil
	}
	fn := h.state.GetGlobal(hook)
	if fn == lua.LNil {
		return nil, false, nil
	}

	if err := h.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(enemyID)); err != nil {
		return nil, false, fmt.Errorf("scripting: hook %q: %w", hook, err)
	}

	ret := h.state.Get(-1)
	h.state.Pop(1)

	switch v := ret.(type) {
	case *lua.LNilType:
		return nil, false, nil
	case *lua.LTable:
		var drops []string
		var convErr error
		v.ForEach(func(_, val lua.LValue) {
			s, ok := val.(lua.LString)
			if !ok {
				convErr = fmt.Errorf("scripting: hook %q returned non-string drop %v", hook, val)
				return
			}
			drops = append(drops, string(s))
		})
		if convErr != nil {
			return nil, false, convErr
		}
		return drops, true, nil
	default:
		return nil, false, fmt.Errorf("scripting: hook %q returned %s, want table or nil", hook, ret.Type())
	}
}

// Close releases the Lua VM.
func (h *Hooks) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
}
