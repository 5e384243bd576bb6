package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/keepercore/engine"
)

func TestLoad_Haunting(t *testing.T) {
	pack, err := Load("testdata/haunting")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if pack.Scenario.Title != "The Haunting" {
		t.Errorf("Title = %q", pack.Scenario.Title)
	}
	if pack.Scenario.Author != "Keeper Tester" {
		t.Errorf("Author = %q", pack.Scenario.Author)
	}
	if len(pack.Paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %q", len(pack.Paragraphs), pack.Paragraphs)
	}
	if pack.Paragraphs[2] != "The cellar door is nailed shut." {
		t.Errorf("paragraph 3 = %q", pack.Paragraphs[2])
	}

	if len(pack.Investigators) != 1 || len(pack.NPCs) != 1 {
		t.Fatalf("expected 1 investigator and 1 NPC, got %d and %d", len(pack.Investigators), len(pack.NPCs))
	}
	harvey := pack.Investigators[0]
	if !harvey.IsPlayer || harvey.Occupation != "Journalist" || harvey.CreditRating != 30 {
		t.Errorf("unexpected investigator %+v", harvey)
	}
	if harvey.Attributes.CON != 60 || harvey.Skills["Spot Hidden"] != 60 {
		t.Errorf("attributes or skills not compiled: %+v", harvey)
	}
	corbitt := pack.NPCs[0]
	if corbitt.IsPlayer || corbitt.Attributes.STR != 90 || corbitt.Attributes.CON != 60 {
		t.Errorf("unexpected NPC %+v", corbitt)
	}

	if len(pack.Weapons) != 2 || pack.Weapons[0].Damage != "1D10" {
		t.Errorf("unexpected weapons %+v", pack.Weapons)
	}

	if len(pack.Rulebooks) != 1 {
		t.Fatalf("expected 1 rulebook, got %d", len(pack.Rulebooks))
	}
	pages := pack.Rulebooks[0].Pages
	if len(pages) != 2 || pages[0].Number != 1 || pages[1].Number != 4 {
		t.Errorf("expected pages 1 and 4, got %+v", pages)
	}
	if len(pack.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", pack.Warnings)
	}
}

func TestPack_Apply(t *testing.T) {
	pack, err := Load("testdata/haunting")
	if err != nil {
		t.Fatal(err)
	}
	e := engine.New(1)
	if err := pack.Apply(e); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !e.Players.Has("Harvey Walters") || !e.NPCs.Has("Walter Corbitt") {
		t.Error("roles not registered")
	}
	if err := pack.Apply(e); !errors.Is(err, engine.ErrDuplicateRole) {
		t.Errorf("applying twice should fail with ErrDuplicateRole, got %v", err)
	}
}

func TestPack_SectionsAndDocument(t *testing.T) {
	pack, err := Load("testdata/haunting")
	if err != nil {
		t.Fatal(err)
	}
	if got := pack.Document(); got != "scenario_the_haunting" {
		t.Errorf("Document() = %q", got)
	}

	sections := pack.Sections()
	if len(sections) != 10 {
		t.Fatalf("expected 9 defaults plus 1, got %d", len(sections))
	}
	last := sections[len(sections)-1]
	if last.Tool != "retrieve_coc_rules_dreamlands" || last.Document != "dreamlands" {
		t.Errorf("unexpected section %+v", last)
	}

	pack.Rulebooks = append(pack.Rulebooks, Rulebook{Name: "Combat", Description: "House combat rules."})
	sections = pack.Sections()
	if len(sections) != 10 {
		t.Errorf("a pack rulebook named like a default should replace it, got %d sections", len(sections))
	}
	for _, s := range sections {
		if s.Document == "combat" && s.Description != "House combat rules." {
			t.Errorf("combat section not replaced: %+v", s)
		}
	}
}

func TestLoad_BadLuaSyntax_Fails(t *testing.T) {
	if _, err := Load("testdata/bad_syntax"); err == nil {
		t.Fatal("expected error for bad Lua syntax")
	}
}

func TestLoad_SandboxEnforced(t *testing.T) {
	_, err := Load("testdata/sandbox")
	if err == nil {
		t.Fatal("expected dofile to be unavailable")
	}
	if !strings.Contains(err.Error(), "scenario.lua") {
		t.Errorf("error should name the file, got %v", err)
	}
}

func TestLoad_NoLuaFiles(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestLoad_ValidationCollectsAllErrors(t *testing.T) {
	dir := writePack(t, map[string]string{
		"scenario.lua": `
Scenario { module = "missing.txt" }
Investigator "A" { STR = 50, CON = 50, SIZ = 50, DEX = 50, APP = 50, INT = 50, POW = 50, EDU = 50, MOV = 8 }
Investigator "A" { STR = 0, CON = 50, SIZ = 50, DEX = 50, APP = 50, INT = 50, POW = 50, EDU = 50, MOV = 8 }
Weapon "Club" { skill = "Fighting", damage = "1Dx" }
Rulebook "Combat Rules" { file = "a.txt" }
Rulebook "combat-rules" { file = "a.txt", description = "dup" }
`,
		"a.txt": "page one",
	})

	_, err := Load(dir)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	assertContains(t, ve.Errors, "Scenario.title")
	assertContains(t, ve.Errors, "missing.txt")
	assertContains(t, ve.Errors, `duplicate investigator "A"`)
	assertContains(t, ve.Errors, "STR must be positive")
	assertContains(t, ve.Errors, `weapon "Club"`)
	assertContains(t, ve.Errors, "normalise to \"combat_rules\"")
}

func TestLoad_SameNameAcrossRegistriesAllowed(t *testing.T) {
	dir := writePack(t, map[string]string{
		"scenario.lua": `
Scenario { title = "Mirror" }
local a = { STR = 50, CON = 50, SIZ = 50, DEX = 50, APP = 50, INT = 50, POW = 50, EDU = 50, MOV = 8 }
Investigator "Twin" (a)
NPC "Twin" (a)
`,
	})
	pack, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pack.Investigators) != 1 || len(pack.NPCs) != 1 {
		t.Errorf("expected one of each, got %d/%d", len(pack.Investigators), len(pack.NPCs))
	}
}

func TestLoad_Warnings(t *testing.T) {
	dir := writePack(t, map[string]string{
		"scenario.lua": `Scenario { title = "Empty", module = "m.txt" }`,
		"m.txt":        "\n\n  \n",
	})
	pack, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertContains(t, pack.Warnings, "no text")
	assertContains(t, pack.Warnings, "no investigators")
}

func TestLoad_FileOrdering(t *testing.T) {
	dir := writePack(t, map[string]string{
		"a_roles.lua":  `Investigator "Z" (base)`,
		"scenario.lua": `Scenario { title = "Order" } base = { STR = 1, CON = 1, SIZ = 1, DEX = 1, APP = 1, INT = 1, POW = 1, EDU = 1, MOV = 1 }`,
	})
	if _, err := Load(dir); err != nil {
		t.Fatalf("scenario.lua should run first: %v", err)
	}
}

func TestPages(t *testing.T) {
	pages := Pages("one\ftwo\f\fthree")
	if len(pages) != 3 || pages[2].Number != 4 || pages[2].Text != "three" {
		t.Errorf("unexpected pages %+v", pages)
	}
	if Pages("") != nil {
		t.Error("empty text should have no pages")
	}
}

func writePack(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func assertContains(t *testing.T, strs []string, substr string) {
	t.Helper()
	for _, s := range strs {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected one of %v to contain %q", strs, substr)
}
