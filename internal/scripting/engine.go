package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/l1jgo/sightline/internal/fov"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the tile rules.
// Single-goroutine access only (game loop / loader).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in dir.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("OPAQUE", lua.LString("opaque"))
	vm.SetGlobal("TRANSPARENT", lua.LString("transparent"))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load tile scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString is NewEngine for a single in-memory chunk.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("OPAQUE", lua.LString("opaque"))
	vm.SetGlobal("TRANSPARENT", lua.LString("transparent"))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load tile script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasClassifier reports whether a classify_tile function is defined.
func (e *Engine) HasClassifier() bool {
	_, ok := e.vm.GetGlobal("classify_tile").(*lua.LFunction)
	return ok
}

// ClassifyTile calls the Lua classify_tile(code) function. ok is false when
// the function is missing, fails, or returns something unrecognised; the
// caller then applies its built-in rule.
func (e *Engine) ClassifyTile(code byte) (op fov.Opacity, ok bool) {
	fn, isFn := e.vm.GetGlobal("classify_tile").(*lua.LFunction)
	if !isFn {
		return fov.Transparent, false
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(code)); err != nil {
		e.log.Error("lua classify_tile error", zap.Uint8("code", code), zap.Error(err))
		return fov.Transparent, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch v := result.(type) {
	case lua.LBool:
		if v {
			return fov.Opaque, true
		}
		return fov.Transparent, true
	case lua.LString:
		switch string(v) {
		case "opaque":
			return fov.Opaque, true
		case "transparent":
			return fov.Transparent, true
		}
	}
	if result != lua.LNil {
		e.log.Warn("lua classify_tile returned unknown value",
			zap.Uint8("code", code), zap.String("value", result.String()))
	}
	return fov.Transparent, false
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
