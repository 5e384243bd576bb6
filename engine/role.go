package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/keepercore/types"
)

// ErrInvalidRole is returned when a role spec cannot produce a valid role.
var ErrInvalidRole = errors.New("invalid role")

// Starting sanity for every role.
const startingSanity = 99

// buildBands maps STR+SIZ upper bounds to build and damage bonus.
var buildBands = []struct {
	max   int
	build int
	bonus string
}{
	{64, -2, "-2"},
	{84, -1, "-1"},
	{124, 0, "0"},
	{164, 1, "+1D4"},
	{204, 2, "+1D6"},
}

// BuildAndBonus returns build and damage bonus for a STR+SIZ total.
func BuildAndBonus(strSiz int) (int, string) {
	for _, b := range buildBands {
		if strSiz <= b.max {
			return b.build, b.bonus
		}
	}
	return 3, "+2D6"
}

// NewRole validates spec and computes the derived values.
// Luck is rolled once here and never re-rolled.
func NewRole(spec types.RoleSpec, rng *RNG) (*types.Role, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRole)
	}
	a := spec.Attributes
	for _, attr := range []struct {
		name  string
		value int
	}{
		{"STR", a.STR}, {"CON", a.CON}, {"SIZ", a.SIZ}, {"DEX", a.DEX}, {"APP", a.APP},
		{"INT", a.INT}, {"POW", a.POW}, {"EDU", a.EDU}, {"MOV", a.MOV},
	} {
		if attr.value <= 0 {
			return nil, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidRole, attr.name, attr.value)
		}
	}

	skills := make(map[string]int, len(spec.Skills))
	for k, v := range spec.Skills {
		skills[k] = v
	}

	build, bonus := BuildAndBonus(a.STR + a.SIZ)
	luck := rng.RollDice(3, 6, 0) * 5
	hp := (a.CON + a.SIZ) / 10
	mp := a.POW / 5

	return &types.Role{
		Name:         spec.Name,
		Occupation:   spec.Occupation,
		IsPlayer:     spec.IsPlayer,
		Attributes:   a,
		CreditRating: spec.CreditRating,
		Skills:       skills,
		MaxHP:        hp,
		MaxMP:        mp,
		MaxSAN:       startingSanity,
		Luck:         luck,
		Build:        build,
		DamageBonus:  bonus,
		HP:           hp,
		MP:           mp,
		SAN:          startingSanity,
		LuckPoints:   luck,
	}, nil
}

// Conscious reports whether the role has hit points left.
func Conscious(r types.Role) bool { return r.HP > 0 }

// Sane reports whether the role has sanity left.
func Sane(r types.Role) bool { return r.SAN > 0 }

// Status is the summary reported for an investigator.
type Status struct {
	Name      string `json:"name"`
	HP        string `json:"hp"`
	MP        string `json:"mp"`
	SAN       string `json:"san"`
	Luck      int    `json:"luck"`
	Conscious bool   `json:"conscious"`
	Sane      bool   `json:"sane"`
}

// StatusOf summarizes a role.
func StatusOf(r types.Role) Status {
	return Status{
		Name:      r.Name,
		HP:        fmt.Sprintf("%d/%d", r.HP, r.MaxHP),
		MP:        fmt.Sprintf("%d/%d", r.MP, r.MaxMP),
		SAN:       fmt.Sprintf("%d/%d", r.SAN, r.MaxSAN),
		Luck:      r.LuckPoints,
		Conscious: Conscious(r),
		Sane:      Sane(r),
	}
}

// SkillValue finds a skill by exact name, then case-insensitively, and
// returns the stored name with its value.
func SkillValue(r types.Role, skill string) (string, int, bool) {
	if v, ok := r.Skills[skill]; ok {
		return skill, v, true
	}
	for name, v := range r.Skills {
		if strings.EqualFold(name, skill) {
			return name, v, true
		}
	}
	return skill, 0, false
}
