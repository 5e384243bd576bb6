package engine

import (
	"sort"
	"strings"

	"github.com/nathoo/keepercore/engine/dice"
	"github.com/nathoo/keepercore/types"
)

// unarmedSkill is the skill used for bare-handed attacks.
const unarmedSkill = "fighting"

// unarmed are the weapon names that resolve to the fighting skill.
var unarmed = map[string]bool{
	"fist":    true,
	"fists":   true,
	"punch":   true,
	"kick":    true,
	"unarmed": true,
	"brawl":   true,
	"拳头":      true,
	"踢击":      true,
}

// Base damage for weapons without a damage roll.
const baseDamage = 1

// Arsenal maps weapon names to their definitions.
type Arsenal map[string]types.Weapon

// resolve returns the skill and damage expression for a weapon.
func (a Arsenal) resolve(weapon string) (string, dice.Expr) {
	key := strings.ToLower(strings.TrimSpace(weapon))
	if unarmed[key] {
		return unarmedSkill, dice.Expr{Modifier: baseDamage}
	}
	for name, w := range a {
		if strings.EqualFold(name, weapon) {
			expr, err := dice.Parse(w.Damage)
			if err != nil || expr.IsZero() {
				expr = dice.Expr{Modifier: baseDamage}
			}
			return w.Skill, expr
		}
	}
	return weapon, dice.Expr{Modifier: baseDamage}
}

// AttackResult is the outcome of an attack or fight-back roll.
type AttackResult struct {
	Skill   string `json:"skill"`
	Roll    int    `json:"roll"`
	Target  int    `json:"target"`
	Success bool   `json:"success"`
	Damage  int    `json:"damage"`
}

// Attack rolls the weapon's skill at the given difficulty. On success damage
// is the weapon damage plus the damage bonus roll when the bonus is a
// positive dice expression; "0" and negative bonuses add nothing.
// Attack never applies damage itself.
func Attack(r types.Role, weapon string, difficulty types.Difficulty, arsenal Arsenal, rng *RNG) AttackResult {
	skill, dmg := arsenal.resolve(weapon)
	check := SkillRoll(r, skill, difficulty, rng)
	res := AttackResult{
		Skill:   check.Skill,
		Roll:    check.Roll,
		Target:  check.Target,
		Success: check.Success,
	}
	if !res.Success {
		return res
	}
	res.Damage = dmg.Roll(rng)
	if strings.HasPrefix(r.DamageBonus, "+") {
		if bonus, err := dice.Parse(r.DamageBonus); err == nil {
			res.Damage += bonus.Roll(rng)
		}
	}
	return res
}

// FightBack resolves a defender striking back. It is the same roll as Attack.
func FightBack(r types.Role, weapon string, difficulty types.Difficulty, arsenal Arsenal, rng *RNG) AttackResult {
	return Attack(r, weapon, difficulty, arsenal, rng)
}

// Dodge always succeeds.
// TODO: roll against the dodge skill once opposed rolls are modelled.
func Dodge(types.Role) bool {
	return true
}

// CombatOrder sorts roles by DEX, highest first. Ties keep input order.
func CombatOrder(roles []types.Role) []types.Role {
	out := make([]types.Role, len(roles))
	copy(out, roles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Attributes.DEX > out[j].Attributes.DEX
	})
	return out
}
