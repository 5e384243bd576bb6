package engine

import "github.com/nathoo/keepercore/types"

// SkillTarget scales a skill value by difficulty.
func SkillTarget(value int, difficulty types.Difficulty) int {
	switch difficulty {
	case types.DifficultyHard:
		return value / 2
	case types.DifficultyExtreme:
		return value / 5
	default:
		return value
	}
}

// CheckResult is the detail of one percentile skill roll.
type CheckResult struct {
	Skill   string `json:"skill_name"`
	Value   int    `json:"skill_value"`
	Target  int    `json:"target"`
	Roll    int    `json:"roll"`
	Success bool   `json:"success"`
}

// SkillRoll rolls d100 against the role's skill. An unknown skill fails
// without rolling. The role is never mutated.
func SkillRoll(r types.Role, skill string, difficulty types.Difficulty, rng *RNG) CheckResult {
	name, value, known := SkillValue(r, skill)
	res := CheckResult{Skill: name, Value: value, Target: SkillTarget(value, difficulty)}
	if !known {
		return res
	}
	res.Roll = rng.Percentile()
	res.Success = res.Roll <= res.Target
	return res
}

// SkillCheck reports whether a skill roll succeeds.
func SkillCheck(r types.Role, skill string, difficulty types.Difficulty, rng *RNG) bool {
	return SkillRoll(r, skill, difficulty, rng).Success
}

// ImproveSkill raises a known skill by amount. Unknown skills are ignored.
func ImproveSkill(r *types.Role, skill string, amount int) bool {
	name, value, ok := SkillValue(*r, skill)
	if !ok {
		return false
	}
	r.Skills[name] = value + amount
	return true
}
