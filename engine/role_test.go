package engine

import (
	"errors"
	"testing"

	"github.com/nathoo/keepercore/types"
)

func testAttrs() types.Attributes {
	return types.Attributes{STR: 50, CON: 60, SIZ: 65, DEX: 70, APP: 45, INT: 80, POW: 55, EDU: 85, MOV: 8}
}

func TestBuildAndBonus_Bands(t *testing.T) {
	tests := []struct {
		strSiz int
		build  int
		bonus  string
	}{
		{40, -2, "-2"},
		{64, -2, "-2"},
		{65, -1, "-1"},
		{84, -1, "-1"},
		{85, 0, "0"},
		{124, 0, "0"},
		{125, 1, "+1D4"},
		{164, 1, "+1D4"},
		{165, 2, "+1D6"},
		{204, 2, "+1D6"},
		{205, 3, "+2D6"},
		{300, 3, "+2D6"},
	}

	for _, tt := range tests {
		build, bonus := BuildAndBonus(tt.strSiz)
		if build != tt.build || bonus != tt.bonus {
			t.Errorf("BuildAndBonus(%d) = (%d, %q), want (%d, %q)",
				tt.strSiz, build, bonus, tt.build, tt.bonus)
		}
	}
}

func TestNewRole_Derived(t *testing.T) {
	rng := NewRNG(42)
	role, err := NewRole(types.RoleSpec{
		Name:       "Harvey Walters",
		Occupation: "Journalist",
		IsPlayer:   true,
		Attributes: testAttrs(),
		Skills:     map[string]int{"Spot Hidden": 60},
	}, rng)
	if err != nil {
		t.Fatalf("NewRole: %v", err)
	}

	if role.MaxHP != 12 || role.HP != 12 {
		t.Errorf("expected HP 12/12, got %d/%d", role.HP, role.MaxHP)
	}
	if role.MaxMP != 11 || role.MP != 11 {
		t.Errorf("expected MP 11/11, got %d/%d", role.MP, role.MaxMP)
	}
	if role.SAN != 99 || role.MaxSAN != 99 {
		t.Errorf("expected SAN 99/99, got %d/%d", role.SAN, role.MaxSAN)
	}
	if role.Build != 0 || role.DamageBonus != "0" {
		t.Errorf("expected build 0 / bonus 0, got %d / %q", role.Build, role.DamageBonus)
	}
	if role.Luck < 15 || role.Luck > 90 || role.Luck%5 != 0 {
		t.Errorf("luck %d is not 3D6*5", role.Luck)
	}
	if role.LuckPoints != role.Luck {
		t.Errorf("luck points %d should start at luck %d", role.LuckPoints, role.Luck)
	}
	if rng.Position() != 3 {
		t.Errorf("expected exactly 3 draws for luck, got %d", rng.Position())
	}
}

func TestNewRole_CopiesSkills(t *testing.T) {
	skills := map[string]int{"Library Use": 70}
	role, err := NewRole(types.RoleSpec{Name: "A", Attributes: testAttrs(), Skills: skills}, NewRNG(1))
	if err != nil {
		t.Fatal(err)
	}
	skills["Library Use"] = 1
	if role.Skills["Library Use"] != 70 {
		t.Error("role skills alias the RoleSpec map")
	}
}

func TestNewRole_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec types.RoleSpec
	}{
		{"empty name", types.RoleSpec{Name: " ", Attributes: testAttrs()}},
		{"zero STR", types.RoleSpec{Name: "A", Attributes: func() types.Attributes {
			a := testAttrs()
			a.STR = 0
			return a
		}()}},
		{"negative MOV", types.RoleSpec{Name: "A", Attributes: func() types.Attributes {
			a := testAttrs()
			a.MOV = -1
			return a
		}()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRole(tt.spec, NewRNG(1)); !errors.Is(err, ErrInvalidRole) {
				t.Errorf("expected ErrInvalidRole, got %v", err)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	r := types.Role{Name: "Harvey", HP: 0, MaxHP: 12, MP: 5, MaxMP: 11, SAN: 40, MaxSAN: 99, LuckPoints: 55}
	st := StatusOf(r)
	if st.HP != "0/12" {
		t.Errorf("expected hp 0/12, got %q", st.HP)
	}
	if st.MP != "5/11" || st.SAN != "40/99" {
		t.Errorf("expected mp 5/11 san 40/99, got %q %q", st.MP, st.SAN)
	}
	if st.Conscious {
		t.Error("HP 0 should be unconscious")
	}
	if !st.Sane {
		t.Error("SAN 40 should be sane")
	}
	if st.Luck != 55 {
		t.Errorf("expected luck 55, got %d", st.Luck)
	}
}
