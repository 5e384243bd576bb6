package tools

import (
	"context"
	"fmt"

	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/types"
)

func difficultyOf(a args) types.Difficulty {
	return types.Difficulty(a.textOr("difficulty", string(types.DifficultyNormal)))
}

type diceResult struct {
	DiceNum int `json:"dice_num"`
	Faces   int `json:"faces"`
	Bonus   int `json:"bonus"`
	Result  int `json:"result"`
}

func (d *Dispatcher) rollDice(_ context.Context, a args) (any, error) {
	n, faces, bonus := a.num("dice_num"), a.num("faces"), a.numOr("bonus", 0)
	return diceResult{
		DiceNum: n,
		Faces:   faces,
		Bonus:   bonus,
		Result:  d.engine.RNG().RollDice(n, faces, bonus),
	}, nil
}

func (d *Dispatcher) createRole(_ context.Context, a args) (any, error) {
	skills := map[string]int{}
	for _, s := range a.objects("skills") {
		skills[s.text("name")] = s.num("value")
	}
	return d.engine.CreateRole(types.RoleSpec{
		Name:       a.text("name"),
		Occupation: a.text("occupation"),
		IsPlayer:   a.flag("is_player"),
		Attributes: types.Attributes{
			STR: a.num("STR"),
			CON: a.num("CON"),
			SIZ: a.num("SIZ"),
			DEX: a.num("DEX"),
			APP: a.num("APP"),
			INT: a.num("INT"),
			POW: a.num("POW"),
			EDU: a.num("EDU"),
			MOV: a.num("MOV"),
		},
		CreditRating: a.num("credit_rating"),
		Skills:       skills,
	})
}

type checkResult struct {
	Success    bool             `json:"success"`
	SkillName  string           `json:"skill_name"`
	Difficulty types.Difficulty `json:"difficulty"`
	Pushed     bool             `json:"pushed"`
	Roll       int              `json:"roll"`
	Target     int              `json:"target"`
}

func (d *Dispatcher) skillCheck(_ context.Context, a args) (any, error) {
	out, err := d.engine.SkillCheck(a.text("role_name"), a.text("skill_name"), difficultyOf(a), a.flag("allow_pushed"))
	if err != nil {
		return nil, err
	}
	return checkResult{
		Success:    out.Success,
		SkillName:  out.Skill,
		Difficulty: out.Difficulty,
		Pushed:     out.Pushed,
		Roll:       out.Roll,
		Target:     out.Target,
	}, nil
}

type damageResult struct {
	DamageApplied int  `json:"damage_applied"`
	CurrentHP     int  `json:"current_hp"`
	Conscious     bool `json:"conscious"`
}

func (d *Dispatcher) applyDamage(_ context.Context, a args) (any, error) {
	kind := types.DamageType(a.textOr("damage_type", string(types.DamageNormal)))
	amount := a.num("damage")
	r, err := d.engine.ApplyDamage(a.text("role_name"), amount, kind)
	if err != nil {
		return nil, err
	}
	if kind == types.DamageMajor {
		amount *= 2
	}
	return damageResult{DamageApplied: amount, CurrentHP: r.HP, Conscious: engine.Conscious(r)}, nil
}

type sanityResult struct {
	SanityLoss int  `json:"sanity_loss"`
	CurrentSAN int  `json:"current_san"`
	Sane       bool `json:"sane"`
}

func (d *Dispatcher) applySanityDamage(_ context.Context, a args) (any, error) {
	kind := types.SanityDamageType(a.textOr("damage_type", string(types.SanityTemporary)))
	r, err := d.engine.ApplySanityDamage(a.text("role_name"), a.num("damage"), kind)
	if err != nil {
		return nil, err
	}
	return sanityResult{SanityLoss: a.num("damage"), CurrentSAN: r.SAN, Sane: engine.Sane(r)}, nil
}

type attackResult struct {
	Success         bool   `json:"success"`
	Skill           string `json:"skill"`
	Roll            int    `json:"roll"`
	Target          int    `json:"target"`
	Damage          int    `json:"damage"`
	TargetHP        int    `json:"target_hp"`
	TargetConscious bool   `json:"target_conscious"`
}

func (d *Dispatcher) attack(_ context.Context, a args) (any, error) {
	s, err := d.engine.Attack(a.text("attacker_name"), a.text("target_name"), a.text("weapon"), difficultyOf(a))
	if err != nil {
		return nil, err
	}
	return strikeResult(s), nil
}

func strikeResult(s engine.Strike) attackResult {
	return attackResult{
		Success:         s.Success,
		Skill:           s.Skill,
		Roll:            s.Roll,
		Target:          s.Target,
		Damage:          s.Damage,
		TargetHP:        s.Victim.HP,
		TargetConscious: engine.Conscious(s.Victim),
	}
}

func (d *Dispatcher) dodge(_ context.Context, a args) (any, error) {
	name := a.text("role_name")
	ok, err := d.engine.Dodge(name)
	if err != nil {
		return nil, err
	}
	return struct {
		Success  bool   `json:"success"`
		RoleName string `json:"role_name"`
	}{ok, name}, nil
}

type fightBackResult struct {
	Success           bool `json:"success"`
	Roll              int  `json:"roll"`
	Target            int  `json:"target"`
	Damage            int  `json:"damage"`
	AttackerHP        int  `json:"attacker_hp"`
	AttackerConscious bool `json:"attacker_conscious"`
}

func (d *Dispatcher) fightBack(_ context.Context, a args) (any, error) {
	s, err := d.engine.FightBack(a.text("defender_name"), a.text("attacker_name"), a.text("weapon"), difficultyOf(a))
	if err != nil {
		return nil, err
	}
	return fightBackResult{
		Success:           s.Success,
		Roll:              s.Roll,
		Target:            s.Target,
		Damage:            s.Damage,
		AttackerHP:        s.Victim.HP,
		AttackerConscious: engine.Conscious(s.Victim),
	}, nil
}

type improveResult struct {
	SkillName string `json:"skill_name"`
	NewValue  int    `json:"new_value"`
	Improved  bool   `json:"improved"`
}

func (d *Dispatcher) improveSkill(_ context.Context, a args) (any, error) {
	skill := a.text("skill_name")
	r, improved, err := d.engine.ImproveSkill(a.text("role_name"), skill, a.num("amount"))
	if err != nil {
		return nil, err
	}
	name, value, _ := engine.SkillValue(r, skill)
	return improveResult{SkillName: name, NewValue: value, Improved: improved}, nil
}

func (d *Dispatcher) status(_ context.Context, a args) (any, error) {
	return d.engine.Status(a.text("role_name"))
}

func (d *Dispatcher) startCombat(_ context.Context, a args) (any, error) {
	names := a.list("participants")
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: participants must not be empty", ErrInvalidArgument)
	}
	return d.engine.StartCombat(names)
}

func (d *Dispatcher) endCombat(_ context.Context, a args) (any, error) {
	id := a.text("combat_id")
	if err := d.engine.EndCombat(id); err != nil {
		return nil, err
	}
	return map[string]string{"combat_id": id, "status": "ended"}, nil
}

type madnessResult struct {
	RoleName    string        `json:"role_name"`
	CurrentSAN  int           `json:"current_san"`
	MadnessType types.Madness `json:"madness_type"`
	Sane        bool          `json:"sane"`
}

func (d *Dispatcher) checkMadness(_ context.Context, a args) (any, error) {
	m, r, err := d.engine.CheckMadness(a.text("role_name"), a.num("sanity_loss"))
	if err != nil {
		return nil, err
	}
	return madnessResult{RoleName: r.Name, CurrentSAN: r.SAN, MadnessType: m, Sane: engine.Sane(r)}, nil
}

func (d *Dispatcher) removeInvestigator(_ context.Context, a args) (any, error) {
	name := a.text("role_name")
	if err := d.engine.RemovePlayer(name); err != nil {
		return nil, err
	}
	return map[string]any{"role_name": name, "removed": true}, nil
}
