package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for combat formulas.
// Single-goroutine access only (the session coordinator's lock).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// Load core scripts first, then combat formulas
	for _, sub := range []string{"core", "combat"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
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

// DieValue is one committed die as seen by scripts.
type DieValue struct {
	Color string
	Sides int
	Value int
}

// DamageContext holds pre-packed data for a damage calculation.
type DamageContext struct {
	Kind     string // "light" or "heavy"
	Dice     []DieValue
	TargetHP int
}

// CalcDamage calls the Lua calc_damage function. Missing functions and
// script errors fall back to the sum of the dice.
func (e *Engine) CalcDamage(ctx DamageContext) int {
	fallback := 0
	for _, d := range ctx.Dice {
		fallback += d.Value
	}

	fn := e.vm.GetGlobal("calc_damage")
	if fn == lua.LNil {
		e.log.Error("lua function calc_damage not found")
		return fallback
	}

	t := e.vm.NewTable()
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("target_hp", lua.LNumber(ctx.TargetHP))
	dice := e.vm.NewTable()
	for _, d := range ctx.Dice {
		dt := e.vm.NewTable()
		dt.RawSetString("color", lua.LString(d.Color))
		dt.RawSetString("sides", lua.LNumber(d.Sides))
		dt.RawSetString("value", lua.LNumber(d.Value))
		dice.Append(dt)
	}
	t.RawSetString("dice", dice)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_damage error", zap.Error(err))
		return fallback
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua calc_damage returned non-number", zap.String("type", result.Type().String()))
		return fallback
	}
	return int(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
