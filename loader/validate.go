package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/keepercore/corpus"
	"github.com/nathoo/keepercore/engine/dice"
	"github.com/nathoo/keepercore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled pack for consistency.
func validate(p *Pack, ve *ValidationError) {
	if p.Scenario.Title == "" {
		ve.Errors = append(ve.Errors, "Scenario.title is required")
	}
	if p.Scenario.Module != "" && len(p.Paragraphs) == 0 {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf("module file %q has no text", p.Scenario.Module))
	}
	if len(p.Investigators) == 0 {
		ve.Warnings = append(ve.Warnings, "no investigators defined; the keeper will have to create them")
	}

	validateRoles("investigator", p.Investigators, ve)
	validateRoles("NPC", p.NPCs, ve)

	weapons := map[string]bool{}
	for _, w := range p.Weapons {
		key := strings.ToLower(w.Name)
		if weapons[key] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate weapon %q", w.Name))
		}
		weapons[key] = true
		if w.Skill == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("weapon %q: skill is required", w.Name))
		}
		if _, err := dice.Parse(w.Damage); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("weapon %q: %v", w.Name, err))
		}
	}

	books := map[string]string{}
	for _, rb := range p.Rulebooks {
		doc := corpus.NormalizeName(rb.Name)
		switch {
		case doc == "":
			ve.Errors = append(ve.Errors, fmt.Sprintf("rulebook %q: name has no letters or digits", rb.Name))
		case books[doc] != "":
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"rulebook %q collides with %q (both normalise to %q)", rb.Name, books[doc], doc))
		default:
			books[doc] = rb.Name
		}
		if rb.File == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("rulebook %q: file is required", rb.Name))
		}
		if rb.Description == "" {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("rulebook %q has no description", rb.Name))
		}
	}
}

func validateRoles(kind string, specs []types.RoleSpec, ve *ValidationError) {
	seen := map[string]bool{}
	for _, s := range specs {
		if strings.TrimSpace(s.Name) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s with empty name", kind))
			continue
		}
		if seen[s.Name] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate %s %q", kind, s.Name))
		}
		seen[s.Name] = true

		a := s.Attributes
		for _, attr := range []struct {
			name  string
			value int
		}{
			{"STR", a.STR}, {"CON", a.CON}, {"SIZ", a.SIZ}, {"DEX", a.DEX}, {"APP", a.APP},
			{"INT", a.INT}, {"POW", a.POW}, {"EDU", a.EDU}, {"MOV", a.MOV},
		} {
			if attr.value <= 0 {
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s %q: %s must be positive", kind, s.Name, attr.name))
			}
		}
	}
}
