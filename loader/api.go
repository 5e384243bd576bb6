package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers the scenario constructors as globals.
func registerAPI(L *lua.LState, coll *collector) {
	// Scenario { title = "...", module = "module.txt", ... }
	L.SetGlobal("Scenario", L.NewFunction(func(L *lua.LState) int {
		coll.scenario = L.CheckTable(1)
		return 0
	}))

	// Investigator "Name" { ... } and NPC "Name" { ... } are curried:
	// the name call returns a function that takes the table.
	L.SetGlobal("Investigator", roleConstructor(L, coll, true))
	L.SetGlobal("NPC", roleConstructor(L, coll, false))

	// Weapon ".38 Revolver" { skill = "...", damage = "1D10" }
	L.SetGlobal("Weapon", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.weapons = append(coll.weapons, rawWeapon{name: name, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Rulebook "combat" { file = "rules/combat.txt", description = "..." }
	L.SetGlobal("Rulebook", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.rulebooks = append(coll.rulebooks, rawRulebook{name: name, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))
}

func roleConstructor(L *lua.LState, coll *collector, player bool) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.roles = append(coll.roles, rawRole{name: name, player: player, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	})
}
