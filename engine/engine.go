// Package engine is the character resolution engine: role creation, dice,
// skill checks, damage, sanity and combat, scoped to one session.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/keepercore/engine/state"
	"github.com/nathoo/keepercore/types"
)

var (
	// ErrRoleNotFound is returned when no registry holds the named role.
	ErrRoleNotFound = state.ErrNotFound
	// ErrDuplicateRole is returned when creating a role whose name is taken.
	ErrDuplicateRole = state.ErrDuplicate
	// ErrEncounterNotFound is returned when ending an unknown combat.
	ErrEncounterNotFound = errors.New("combat not found")
)

// Engine holds the session's registries, RNG and arsenal.
type Engine struct {
	Players *state.Registry
	NPCs    *state.Registry

	mu         sync.RWMutex
	rng        *RNG
	arsenal    Arsenal
	encounters map[string]types.Encounter
}

// New creates an empty session seeded with seed.
func New(seed int64) *Engine {
	return &Engine{
		Players:    state.NewRegistry(),
		NPCs:       state.NewRegistry(),
		rng:        NewRNG(seed),
		arsenal:    Arsenal{},
		encounters: map[string]types.Encounter{},
	}
}

// RNG returns the session RNG.
func (e *Engine) RNG() *RNG {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rng
}

// RestoreRNG re-creates the RNG from seed and advances to the saved position.
func (e *Engine) RestoreRNG(seed int64, position int64) {
	rng := RestoreRNG(seed, position)
	e.mu.Lock()
	e.rng = rng
	e.mu.Unlock()
}

// AddWeapon registers a weapon in the session arsenal.
func (e *Engine) AddWeapon(w types.Weapon) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arsenal[w.Name] = w
}

func (e *Engine) weapons() Arsenal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.arsenal
}

func (e *Engine) registryFor(isPlayer bool) *state.Registry {
	if isPlayer {
		return e.Players
	}
	return e.NPCs
}

// CreateRole builds a role from spec and registers it with the players or
// the NPCs. A name already taken in that registry is rejected.
func (e *Engine) CreateRole(spec types.RoleSpec) (types.Role, error) {
	role, err := NewRole(spec, e.RNG())
	if err != nil {
		return types.Role{}, err
	}
	if err := e.registryFor(spec.IsPlayer).Add(role); err != nil {
		return types.Role{}, err
	}
	return state.Clone(role), nil
}

// Lookup finds a role by name, players first.
func (e *Engine) Lookup(name string) (types.Role, error) {
	if r, ok := e.Players.Get(name); ok {
		return r, nil
	}
	if r, ok := e.NPCs.Get(name); ok {
		return r, nil
	}
	return types.Role{}, fmt.Errorf("%w: %q", ErrRoleNotFound, name)
}

// update mutates the named role under its registry's write lock and returns
// a copy of the result.
func (e *Engine) update(name string, fn func(*types.Role)) (types.Role, error) {
	for _, reg := range []*state.Registry{e.Players, e.NPCs} {
		var out types.Role
		err := reg.Update(name, func(r *types.Role) {
			fn(r)
			out = state.Clone(r)
		})
		if err == nil {
			return out, nil
		}
	}
	return types.Role{}, fmt.Errorf("%w: %q", ErrRoleNotFound, name)
}

// RemovePlayer removes an investigator. NPCs cannot be removed.
func (e *Engine) RemovePlayer(name string) error {
	return e.Players.Remove(name)
}

// CheckOutcome is the result of a possibly pushed skill check.
type CheckOutcome struct {
	CheckResult
	Difficulty types.Difficulty `json:"difficulty"`
	Pushed     bool             `json:"pushed"`
}

// SkillCheck rolls the role's skill. With allowPushed a failed roll is
// retried once and the outcome marked pushed.
func (e *Engine) SkillCheck(name, skill string, difficulty types.Difficulty, allowPushed bool) (CheckOutcome, error) {
	r, err := e.Lookup(name)
	if err != nil {
		return CheckOutcome{}, err
	}
	rng := e.RNG()
	out := CheckOutcome{CheckResult: SkillRoll(r, skill, difficulty, rng), Difficulty: difficulty}
	if !out.Success && allowPushed {
		out.CheckResult = SkillRoll(r, skill, difficulty, rng)
		out.Pushed = true
	}
	return out, nil
}

// ApplyDamage applies physical damage to the named role.
func (e *Engine) ApplyDamage(name string, amount int, kind types.DamageType) (types.Role, error) {
	return e.update(name, func(r *types.Role) { ApplyDamage(r, amount, kind) })
}

// ApplySanityDamage applies a sanity loss to the named role.
func (e *Engine) ApplySanityDamage(name string, amount int, kind types.SanityDamageType) (types.Role, error) {
	return e.update(name, func(r *types.Role) { ApplySanityDamage(r, amount, kind) })
}

// ImproveSkill raises a skill on the named role; unknown skills are ignored.
func (e *Engine) ImproveSkill(name, skill string, amount int) (types.Role, bool, error) {
	var improved bool
	r, err := e.update(name, func(r *types.Role) { improved = ImproveSkill(r, skill, amount) })
	return r, improved, err
}

// Strike is the outcome of an attack applied to its victim.
type Strike struct {
	AttackResult
	Victim types.Role `json:"-"`
}

// Attack rolls attacker's weapon and, on success, applies the damage to target.
func (e *Engine) Attack(attacker, target, weapon string, difficulty types.Difficulty) (Strike, error) {
	return e.strike(attacker, target, weapon, difficulty)
}

// FightBack rolls defender's weapon and, on success, applies the damage to
// the original attacker.
func (e *Engine) FightBack(defender, attacker, weapon string, difficulty types.Difficulty) (Strike, error) {
	return e.strike(defender, attacker, weapon, difficulty)
}

func (e *Engine) strike(actor, victim, weapon string, difficulty types.Difficulty) (Strike, error) {
	a, err := e.Lookup(actor)
	if err != nil {
		return Strike{}, err
	}
	v, err := e.Lookup(victim)
	if err != nil {
		return Strike{}, err
	}
	res := Strike{AttackResult: Attack(a, weapon, difficulty, e.weapons(), e.RNG()), Victim: v}
	if res.Success {
		res.Victim, err = e.ApplyDamage(victim, res.Damage, types.DamageNormal)
		if err != nil {
			return Strike{}, err
		}
	}
	return res, nil
}

// Dodge resolves a dodge for the named role.
func (e *Engine) Dodge(name string) (bool, error) {
	r, err := e.Lookup(name)
	if err != nil {
		return false, err
	}
	return Dodge(r), nil
}

// Status summarizes the named role.
func (e *Engine) Status(name string) (Status, error) {
	r, err := e.Lookup(name)
	if err != nil {
		return Status{}, err
	}
	return StatusOf(r), nil
}

// CheckMadness classifies a sanity loss for the named role.
func (e *Engine) CheckMadness(name string, loss int) (types.Madness, types.Role, error) {
	r, err := e.Lookup(name)
	if err != nil {
		return types.MadnessNone, types.Role{}, err
	}
	return MadnessClassification(r, loss), r, nil
}

// StartCombat opens an encounter between the named roles and returns the
// initiative order.
func (e *Engine) StartCombat(names []string) (types.Encounter, error) {
	roles := make([]types.Role, 0, len(names))
	for _, n := range names {
		r, err := e.Lookup(n)
		if err != nil {
			return types.Encounter{}, err
		}
		roles = append(roles, r)
	}
	enc := types.Encounter{ID: uuid.NewString()}
	for _, r := range CombatOrder(roles) {
		enc.Order = append(enc.Order, r.Name)
	}

	e.mu.Lock()
	e.encounters[enc.ID] = enc
	e.mu.Unlock()
	return enc, nil
}

// EndCombat closes an encounter.
func (e *Engine) EndCombat(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.encounters[id]; !ok {
		return fmt.Errorf("%w: %q", ErrEncounterNotFound, id)
	}
	delete(e.encounters, id)
	return nil
}

// Encounters returns the number of open encounters.
func (e *Engine) Encounters() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.encounters)
}
