package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/keepercore/corpus"
	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/tools"
	"github.com/nathoo/keepercore/types"
)

// ScenarioDef is the Scenario block of a pack.
type ScenarioDef struct {
	Title  string
	Author string
	Intro  string
	Module string
}

// Rulebook is a rulebook section declared by a pack, with its pages read.
type Rulebook struct {
	Name        string
	File        string
	Description string
	Pages       []types.Page
}

// Pack is a loaded scenario.
type Pack struct {
	Dir           string
	Scenario      ScenarioDef
	Paragraphs    []string
	Investigators []types.RoleSpec
	NPCs          []types.RoleSpec
	Weapons       []types.Weapon
	Rulebooks     []Rulebook
	Warnings      []string
}

// Document is the corpus document the module text is stored under.
func (p *Pack) Document() string {
	if doc := corpus.NormalizeName(p.Scenario.Title); doc != "" {
		return "scenario_" + doc
	}
	return "scenario"
}

// ModuleText joins the module paragraphs.
func (p *Pack) ModuleText() string {
	return strings.Join(p.Paragraphs, "\n\n")
}

// Sections returns the default rulebook sections with the pack's own
// rulebooks added. A pack rulebook replaces a default of the same name.
func (p *Pack) Sections() []tools.Section {
	sections := tools.DefaultSections()
	index := make(map[string]int, len(sections))
	for i, s := range sections {
		index[s.Document] = i
	}
	for _, rb := range p.Rulebooks {
		s := tools.RulebookSection(rb.Name, rb.Description)
		if i, ok := index[s.Document]; ok {
			sections[i] = s
			continue
		}
		index[s.Document] = len(sections)
		sections = append(sections, s)
	}
	return sections
}

// Apply registers the pack's weapons and roles with the engine.
func (p *Pack) Apply(e *engine.Engine) error {
	for _, w := range p.Weapons {
		e.AddWeapon(w)
	}
	for _, specs := range [][]types.RoleSpec{p.Investigators, p.NPCs} {
		for _, s := range specs {
			if _, err := e.CreateRole(s); err != nil {
				return fmt.Errorf("creating %q: %w", s.Name, err)
			}
		}
	}
	return nil
}
