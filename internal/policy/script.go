package policy

import (
	"fmt"
	"log/slog"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// entryPoint is the Lua function a policy script must define.
const entryPoint = "fishing_open"

// Script is a fleet policy written in Lua. The script defines
//
//	function fishing_open(day, season, population) return true end
//
// and may read the globals YEAR_LENGTH and SPAWN_SEASON. Single-goroutine
// access only.
type Script struct {
	vm   *lua.LState
	fn   lua.LValue
	name string
}

// LoadScript reads and runs a policy script file.
func LoadScript(path string, yearLength, spawnSeason int) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewScript(path, string(src), yearLength, spawnSeason)
}

// NewScript compiles a policy from source. name labels errors and logs.
func NewScript(name, src string, yearLength, spawnSeason int) (*Script, error) {
	vm := lua.NewState()
	vm.SetGlobal("YEAR_LENGTH", lua.LNumber(yearLength))
	vm.SetGlobal("SPAWN_SEASON", lua.LNumber(spawnSeason))

	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	fn := vm.GetGlobal(entryPoint)
	if fn.Type() != lua.LTFunction {
		vm.Close()
		return nil, fmt.Errorf("%s does not define %s", name, entryPoint)
	}
	slog.Debug("loaded policy script", "file", name)
	return &Script{vm: vm, fn: fn, name: name}, nil
}

// Open implements Policy. A script error keeps the fleet in harbor.
func (s *Script) Open(day, season, population int) bool {
	if err := s.vm.CallByParam(lua.P{
		Fn:      s.fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(day), lua.LNumber(season), lua.LNumber(population)); err != nil {
		slog.Error("policy script error", "file", s.name, "day", day, "error", err)
		return false
	}
	result := s.vm.Get(-1)
	s.vm.Pop(1)
	return lua.LVAsBool(result)
}

// Close releases the VM.
func (s *Script) Close() {
	s.vm.Close()
}
