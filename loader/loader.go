package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	scenario  *lua.LTable
	roles     []rawRole
	weapons   []rawWeapon
	rulebooks []rawRulebook
}

// Load reads all .lua files from dir, compiles them into a scenario pack,
// reads the module and rulebook files they reference, and validates the
// result. The Lua VM is discarded after loading.
func Load(dir string) (*Pack, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	ve := &ValidationError{}
	pack := compile(coll, dir, ve)
	validate(pack, ve)
	if len(ve.Errors) > 0 {
		return nil, ve
	}
	pack.Warnings = ve.Warnings
	return pack, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach the filesystem or break determinism.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}
