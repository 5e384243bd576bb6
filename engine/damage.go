package engine

import "github.com/nathoo/keepercore/types"

// TakeDamage lowers HP by amount. Permanent damage also lowers MaxHP.
// Returns whether the role is still conscious.
func TakeDamage(r *types.Role, amount int, permanent bool) bool {
	r.HP -= amount
	if permanent {
		r.MaxHP -= amount
	}
	return Conscious(*r)
}

// ApplyDamage applies physical damage; major wounds double it.
func ApplyDamage(r *types.Role, amount int, kind types.DamageType) bool {
	if kind == types.DamageMajor {
		amount *= 2
	}
	return TakeDamage(r, amount, false)
}

// ApplySanityDamage lowers SAN by amount. Permanent loss also lowers MaxSAN.
// Returns whether the role is still sane.
func ApplySanityDamage(r *types.Role, amount int, kind types.SanityDamageType) bool {
	r.SAN -= amount
	if kind == types.SanityPermanent {
		r.MaxSAN -= amount
	}
	return Sane(*r)
}

// MadnessClassification classifies a sanity loss against current SAN.
// Losses under 5 never trigger madness.
func MadnessClassification(r types.Role, loss int) types.Madness {
	switch {
	case loss < 5:
		return types.MadnessNone
	case r.SAN <= 0:
		return types.MadnessPermanent
	case r.SAN <= 5:
		return types.MadnessIndefinite
	default:
		return types.MadnessTemporary
	}
}
