// Package loader loads Lua scenario packs into Go structs. The Lua VM is
// discarded after loading.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/keepercore/corpus"
	"github.com/nathoo/keepercore/types"
)

// rawRole holds an Investigator or NPC table before compilation.
type rawRole struct {
	name   string
	player bool
	table  *lua.LTable
}

// rawWeapon holds a Weapon table before compilation.
type rawWeapon struct {
	name  string
	table *lua.LTable
}

// rawRulebook holds a Rulebook table before compilation.
type rawRulebook struct {
	name  string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getInt returns an integer field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// tableToIntMap converts a Lua table of string keys to numbers.
func tableToIntMap(tbl *lua.LTable) map[string]int {
	m := map[string]int{}
	if tbl == nil {
		return m
	}
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		if n, ok := v.(lua.LNumber); ok {
			m[string(ks)] = int(n)
		}
	})
	return m
}

// compile converts collected tables into a Pack and reads the files they
// reference. Unreadable files are recorded in ve.
func compile(coll *collector, dir string, ve *ValidationError) *Pack {
	p := &Pack{Dir: dir}

	if coll.scenario == nil {
		ve.Errors = append(ve.Errors, "Scenario definition is required")
	} else {
		p.Scenario = compileScenario(coll.scenario)
	}

	if p.Scenario.Module != "" {
		text, err := os.ReadFile(filepath.Join(dir, p.Scenario.Module))
		if err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("module file %q: %v", p.Scenario.Module, err))
		} else {
			p.Paragraphs = corpus.Paragraphs(string(text))
		}
	}

	for _, raw := range coll.roles {
		spec := compileRole(raw)
		if raw.player {
			p.Investigators = append(p.Investigators, spec)
		} else {
			p.NPCs = append(p.NPCs, spec)
		}
	}

	for _, raw := range coll.weapons {
		p.Weapons = append(p.Weapons, types.Weapon{
			Name:   raw.name,
			Skill:  getString(raw.table, "skill"),
			Damage: getString(raw.table, "damage"),
		})
	}

	for _, raw := range coll.rulebooks {
		rb := Rulebook{
			Name:        raw.name,
			File:        getString(raw.table, "file"),
			Description: getString(raw.table, "description"),
		}
		if rb.File != "" {
			text, err := os.ReadFile(filepath.Join(dir, rb.File))
			if err != nil {
				ve.Errors = append(ve.Errors, fmt.Sprintf("rulebook %q file %q: %v", rb.Name, rb.File, err))
			} else {
				rb.Pages = Pages(string(text))
			}
		}
		p.Rulebooks = append(p.Rulebooks, rb)
	}

	return p
}

func compileScenario(tbl *lua.LTable) ScenarioDef {
	return ScenarioDef{
		Title:  getString(tbl, "title"),
		Author: getString(tbl, "author"),
		Intro:  getString(tbl, "intro"),
		Module: getString(tbl, "module"),
	}
}

func compileRole(raw rawRole) types.RoleSpec {
	t := raw.table
	return types.RoleSpec{
		Name:       raw.name,
		Occupation: getString(t, "occupation"),
		IsPlayer:   raw.player,
		Attributes: types.Attributes{
			STR: getInt(t, "STR"),
			CON: getInt(t, "CON"),
			SIZ: getInt(t, "SIZ"),
			DEX: getInt(t, "DEX"),
			APP: getInt(t, "APP"),
			INT: getInt(t, "INT"),
			POW: getInt(t, "POW"),
			EDU: getInt(t, "EDU"),
			MOV: getInt(t, "MOV"),
		},
		CreditRating: getInt(t, "credit_rating"),
		Skills:       tableToIntMap(getTable(t, "skills")),
	}
}

// Pages splits rulebook text on form feeds. Pages are numbered from 1 by
// position; blank pages are skipped but keep their number.
func Pages(text string) []types.Page {
	var out []types.Page
	for i, p := range strings.Split(text, "\f") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, types.Page{Number: i + 1, Text: p})
	}
	return out
}

// sortedLuaFiles returns scenario.lua first, the rest alphabetically.
func sortedLuaFiles(files []string) []string {
	var first string
	var others []string
	for _, f := range files {
		if f == "scenario.lua" {
			first = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if first != "" {
		return append([]string{first}, others...)
	}
	return others
}
