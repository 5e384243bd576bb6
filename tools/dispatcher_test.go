package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/types"
)

type fakeRetriever struct {
	hits     []types.Hit
	passages []types.Passage
	docs     []string

	lastDocument string
	lastQuery    string
	lastLimit    int
	fullCalls    int
}

func (f *fakeRetriever) Search(_ context.Context, document, query string, k int) ([]types.Hit, error) {
	f.lastDocument, f.lastQuery, f.lastLimit = document, query, k
	return f.hits, nil
}

func (f *fakeRetriever) SearchAllText(_ context.Context, query string, k int) ([]types.Hit, error) {
	f.lastQuery, f.lastLimit = query, k
	return f.hits, nil
}

func (f *fakeRetriever) FullDocument(_ context.Context, document string) ([]types.Passage, error) {
	f.lastDocument = document
	f.fullCalls++
	return f.passages, nil
}

func (f *fakeRetriever) ListDocuments(context.Context) ([]string, error) {
	return f.docs, nil
}

// investigator returns create_role arguments shaped the way a decoded JSON
// tool call arrives.
func investigator(name string, player bool) map[string]any {
	return map[string]any{
		"name": name, "occupation": "Antiquarian", "is_player": player,
		"STR": 50.0, "CON": 60.0, "SIZ": 65.0, "DEX": 70.0, "APP": 45.0,
		"INT": 80.0, "POW": 55.0, "EDU": 85.0, "MOV": 8.0,
		"skills": []any{
			map[string]any{"name": "Spot Hidden", "value": 60.0},
			map[string]any{"name": "Fighting", "value": 50.0},
		},
	}
}

func newDispatcher(t *testing.T, r Retriever, opts ...Option) (*Dispatcher, *engine.Engine) {
	t.Helper()
	e := engine.New(7)
	return New(e, r, opts...), e
}

func mustCreate(t *testing.T, d *Dispatcher, name string, player bool) {
	t.Helper()
	_, err := d.Dispatch(context.Background(), string(CreateRole), investigator(name, player))
	require.NoError(t, err)
}

func TestCatalog(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	assert.Len(t, d.Catalog(), 14)
	assert.False(t, d.Has(string(SearchAllRules)))

	d, _ = newDispatcher(t, &fakeRetriever{}, WithScenarioDocument("haunting"))
	catalog := d.Catalog()
	assert.Len(t, catalog, 14+9+3)
	assert.Equal(t, string(RollDice), catalog[0].Name)
	assert.True(t, d.Has("retrieve_coc_rules_combat"))
	assert.True(t, d.Has("retrieve_coc_mythos_creatures_gods"))
	assert.True(t, d.Has(string(SearchScenario)))

	for _, spec := range catalog {
		require.NotNil(t, spec.Parameters, spec.Name)
		assert.Equal(t, "object", spec.Parameters.Type, spec.Name)
		for _, key := range spec.Parameters.Required {
			assert.Contains(t, spec.Parameters.Properties, key, "%s requires undeclared %s", spec.Name, key)
		}
	}
}

func TestCatalog_CustomSections(t *testing.T) {
	d, _ := newDispatcher(t, &fakeRetriever{}, WithSections([]Section{
		RulebookSection("Dreamlands.pdf", "The Dreamlands."),
	}))
	assert.True(t, d.Has("retrieve_coc_rules_dreamlands"))
	assert.False(t, d.Has("retrieve_coc_rules_combat"))
}

func TestDispatch_UnknownTool(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	_, err := d.Dispatch(context.Background(), "summon_shoggoth", nil)
	require.ErrorIs(t, err, ErrUnknownTool)
	assert.Equal(t, KindUnknownTool, KindOf(err))
}

func TestDispatch_MissingArgument(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	_, err := d.Dispatch(context.Background(), string(ApplyDamage), map[string]any{"damage": 3.0})
	require.ErrorIs(t, err, ErrMissingArgument)
	assert.Contains(t, err.Error(), "role_name")

	_, err = d.Dispatch(context.Background(), string(ApplyDamage), map[string]any{"role_name": nil, "damage": 3.0})
	require.ErrorIs(t, err, ErrMissingArgument)

	a := investigator("Carl", true)
	a["skills"] = []any{map[string]any{"name": "Spot Hidden"}}
	_, err = d.Dispatch(context.Background(), string(CreateRole), a)
	require.ErrorIs(t, err, ErrMissingArgument)
	assert.Contains(t, err.Error(), "skills[0].value")
}

func TestDispatch_InvalidArgument(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)

	tests := []struct {
		name string
		tool Name
		args map[string]any
	}{
		{"difficulty outside enum", PerformSkillCheck, map[string]any{"role_name": "Harvey", "skill_name": "Spot Hidden", "difficulty": "easy"}},
		{"damage as string", ApplyDamage, map[string]any{"role_name": "Harvey", "damage": "3"}},
		{"fractional damage", ApplyDamage, map[string]any{"role_name": "Harvey", "damage": 2.5}},
		{"negative damage", ApplyDamage, map[string]any{"role_name": "Harvey", "damage": -1.0}},
		{"unknown damage type", ApplyDamage, map[string]any{"role_name": "Harvey", "damage": 3.0, "damage_type": "severe"}},
		{"zero dice", RollDice, map[string]any{"dice_num": 0.0, "faces": 6.0}},
		{"skills not an array", CreateRole, func() map[string]any {
			a := investigator("Carl", true)
			a["skills"] = "Spot Hidden 60"
			return a
		}()},
		{"skill value as string", CreateRole, func() map[string]any {
			a := investigator("Carl", true)
			a["skills"] = []any{map[string]any{"name": "Spot Hidden", "value": "60"}}
			return a
		}()},
		{"participants of wrong type", StartCombat, map[string]any{"participants": []any{"Harvey", 3.0}}},
		{"empty participants", StartCombat, map[string]any{"participants": []any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), string(tt.tool), tt.args)
			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, KindInvalidArgument, KindOf(err))
		})
	}

	r, err := d.engine.Lookup("Harvey")
	require.NoError(t, err)
	assert.Equal(t, r.MaxHP, r.HP, "rejected calls must not touch state")
	assert.False(t, d.engine.Players.Has("Carl"))
}

func TestDispatch_ExtraKeysIgnored(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	out, err := d.Dispatch(context.Background(), string(RollDice), map[string]any{
		"dice_num": 2.0, "faces": 6.0, "reason": "spot the cultist",
	})
	require.NoError(t, err)
	res := out.(diceResult)
	assert.GreaterOrEqual(t, res.Result, 2)
	assert.LessOrEqual(t, res.Result, 12)
}

func TestDispatch_RoleNotFound(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	for _, tc := range []struct {
		tool Name
		args map[string]any
	}{
		{GetInvestigatorStatus, map[string]any{"role_name": "Nobody"}},
		{ApplySanityDamage, map[string]any{"role_name": "Nobody", "damage": 1.0}},
		{PerformAttack, map[string]any{"attacker_name": "Nobody", "target_name": "Else", "weapon": "fist"}},
		{StartCombat, map[string]any{"participants": []any{"Nobody"}}},
	} {
		_, err := d.Dispatch(context.Background(), string(tc.tool), tc.args)
		require.ErrorIs(t, err, engine.ErrRoleNotFound, tc.tool)
		assert.Equal(t, KindRoleNotFound, KindOf(err), tc.tool)
	}
}

func TestCreateRole(t *testing.T) {
	d, e := newDispatcher(t, nil)
	out, err := d.Dispatch(context.Background(), string(CreateRole), investigator("Harvey", true))
	require.NoError(t, err)

	role := out.(types.Role)
	assert.Equal(t, 12, role.HP)
	assert.Equal(t, 60, role.Skills["Spot Hidden"])
	assert.True(t, e.Players.Has("Harvey"))

	_, err = d.Dispatch(context.Background(), string(CreateRole), investigator("Harvey", true))
	assert.Equal(t, KindDuplicateRole, KindOf(err))

	mustCreate(t, d, "Cultist", false)
	assert.True(t, e.NPCs.Has("Cultist"))
}

func TestSkillCheck(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)

	out, err := d.Dispatch(context.Background(), string(PerformSkillCheck), map[string]any{
		"role_name": "Harvey", "skill_name": "Spot Hidden", "difficulty": "hard",
	})
	require.NoError(t, err)
	res := out.(checkResult)
	assert.Equal(t, 30, res.Target)
	assert.Equal(t, res.Roll <= 30, res.Success)
	assert.Equal(t, types.DifficultyHard, res.Difficulty)
	assert.False(t, res.Pushed)
}

func TestApplyDamage_Major(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)

	out, err := d.Dispatch(context.Background(), string(ApplyDamage), map[string]any{
		"role_name": "Harvey", "damage": 4.0, "damage_type": "major",
	})
	require.NoError(t, err)
	assert.Equal(t, damageResult{DamageApplied: 8, CurrentHP: 4, Conscious: true}, out)

	out, err = d.Dispatch(context.Background(), string(ApplyDamage), map[string]any{"role_name": "Harvey", "damage": 6.0})
	require.NoError(t, err)
	assert.Equal(t, damageResult{DamageApplied: 6, CurrentHP: -2, Conscious: false}, out)
}

func TestSanityAndMadness(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)

	out, err := d.Dispatch(context.Background(), string(ApplySanityDamage), map[string]any{
		"role_name": "Harvey", "damage": 10.0, "damage_type": "permanent",
	})
	require.NoError(t, err)
	assert.Equal(t, sanityResult{SanityLoss: 10, CurrentSAN: 89, Sane: true}, out)

	out, err = d.Dispatch(context.Background(), string(CheckMadness), map[string]any{"role_name": "Harvey", "sanity_loss": 10.0})
	require.NoError(t, err)
	assert.Equal(t, madnessResult{RoleName: "Harvey", CurrentSAN: 89, MadnessType: types.MadnessTemporary, Sane: true}, out)
}

func TestAttack_DamagesTarget(t *testing.T) {
	d, e := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)
	mustCreate(t, d, "Cultist", false)

	for i := 0; i < 10; i++ {
		before, _ := e.Lookup("Cultist")
		out, err := d.Dispatch(context.Background(), string(PerformAttack), map[string]any{
			"attacker_name": "Harvey", "target_name": "Cultist", "weapon": "fist",
		})
		require.NoError(t, err)
		res := out.(attackResult)
		assert.Equal(t, "Fighting", res.Skill)
		if res.Success {
			assert.Equal(t, before.HP-res.Damage, res.TargetHP)
		} else {
			assert.Equal(t, before.HP, res.TargetHP)
			assert.Zero(t, res.Damage)
		}
	}
	harvey, _ := e.Lookup("Harvey")
	assert.Equal(t, harvey.MaxHP, harvey.HP, "attacker is never damaged by its own attack")
}

func TestFightBack_DamagesAttacker(t *testing.T) {
	d, e := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)
	mustCreate(t, d, "Cultist", false)

	for i := 0; i < 10; i++ {
		before, _ := e.Lookup("Cultist")
		out, err := d.Dispatch(context.Background(), string(FightBack), map[string]any{
			"defender_name": "Harvey", "attacker_name": "Cultist", "weapon": "kick",
		})
		require.NoError(t, err)
		res := out.(fightBackResult)
		if res.Success {
			assert.Equal(t, before.HP-res.Damage, res.AttackerHP)
		} else {
			assert.Equal(t, before.HP, res.AttackerHP)
		}
	}
	harvey, _ := e.Lookup("Harvey")
	assert.Equal(t, harvey.MaxHP, harvey.HP)
}

func TestImproveSkill(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)

	out, err := d.Dispatch(context.Background(), string(ImproveSkill), map[string]any{
		"role_name": "Harvey", "skill_name": "spot hidden", "amount": 5.0,
	})
	require.NoError(t, err)
	assert.Equal(t, improveResult{SkillName: "Spot Hidden", NewValue: 65, Improved: true}, out)

	out, err = d.Dispatch(context.Background(), string(ImproveSkill), map[string]any{
		"role_name": "Harvey", "skill_name": "Occult", "amount": 5.0,
	})
	require.NoError(t, err)
	assert.False(t, out.(improveResult).Improved)
}

func TestCombatLifecycle(t *testing.T) {
	d, e := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)
	cultist := investigator("Cultist", false)
	cultist["DEX"] = 90.0
	_, err := d.Dispatch(context.Background(), string(CreateRole), cultist)
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), string(StartCombat), map[string]any{
		"participants": []any{"Harvey", "Cultist"},
	})
	require.NoError(t, err)
	enc := out.(types.Encounter)
	assert.Equal(t, []string{"Cultist", "Harvey"}, enc.Order)
	assert.Equal(t, 1, e.Encounters())

	out, err = d.Dispatch(context.Background(), string(EndCombat), map[string]any{"combat_id": enc.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"combat_id": enc.ID, "status": "ended"}, out)

	_, err = d.Dispatch(context.Background(), string(EndCombat), map[string]any{"combat_id": enc.ID})
	assert.Equal(t, KindCombatNotFound, KindOf(err))
}

func TestRemoveInvestigator(t *testing.T) {
	d, e := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)

	_, err := d.Dispatch(context.Background(), string(RemoveInvestigator), map[string]any{"role_name": "Harvey"})
	require.NoError(t, err)
	assert.False(t, e.Players.Has("Harvey"))

	_, err = d.Dispatch(context.Background(), string(RemoveInvestigator), map[string]any{"role_name": "Harvey"})
	assert.ErrorIs(t, err, engine.ErrRoleNotFound)
}

func TestSection_QueryOrFullDocument(t *testing.T) {
	page := 12
	r := &fakeRetriever{
		hits: []types.Hit{{
			Passage: types.Passage{Document: "combat", Page: &page, Text: "Fighting back is an opposed roll."},
			Score:   0.87654,
		}},
		passages: []types.Passage{{Text: "first"}, {Text: "second"}},
	}
	d, _ := newDispatcher(t, r)

	out, err := d.Dispatch(context.Background(), "retrieve_coc_rules_combat", map[string]any{"query": "fight back"})
	require.NoError(t, err)
	res := out.(searchResult)
	assert.Equal(t, "combat", r.lastDocument)
	assert.Equal(t, DefaultLimit, r.lastLimit)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 0.877, res.Results[0].RelevanceScore)
	assert.Equal(t, &page, res.Results[0].Page)

	out, err = d.Dispatch(context.Background(), "retrieve_coc_mythos_creatures_gods", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, documentResult{Document: "mythos_creatures_gods", Content: []string{"first", "second"}}, out)
	assert.Equal(t, 1, r.fullCalls)

	_, err = d.Dispatch(context.Background(), "retrieve_coc_rules_sanity", map[string]any{"query": "", "limit": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 2, r.fullCalls, "empty query reads the whole document")
}

func TestSearchAllAndList(t *testing.T) {
	r := &fakeRetriever{docs: []string{"combat", "sanity"}}
	d, _ := newDispatcher(t, r)

	out, err := d.Dispatch(context.Background(), string(SearchAllRules), map[string]any{"query": "ghoul", "limit": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 3, r.lastLimit)
	assert.Equal(t, searchResult{Query: "ghoul", Results: []passageResult{}}, out)

	out, err = d.Dispatch(context.Background(), string(GetAvailableRuleDocuments), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"documents": {"combat", "sanity"}}, out)
}

func TestInvoke_RendersJSON(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	mustCreate(t, d, "Harvey", true)

	inv := d.Invoke(context.Background(), types.ToolCall{
		ID: "c1", Name: string(GetInvestigatorStatus), Args: map[string]any{"role_name": "Harvey"},
	})
	assert.False(t, inv.Failed)
	assert.JSONEq(t, `{"name":"Harvey","hp":"12/12","mp":"11/11","san":"99/99","luck":`+
		jsonInt(t, inv.Output, "luck")+`,"conscious":true,"sane":true}`, inv.Output)
}

func TestInvoke_FailurePayload(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	inv := d.Invoke(context.Background(), types.ToolCall{
		ID: "c1", Name: string(GetInvestigatorStatus), Args: map[string]any{"role_name": "Nobody"},
	})
	require.True(t, inv.Failed)

	var payload struct {
		Error struct {
			Kind    string `json:"kind"`
			Tool    string `json:"tool"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(inv.Output), &payload))
	assert.Equal(t, "role_not_found", payload.Error.Kind)
	assert.Equal(t, string(GetInvestigatorStatus), payload.Error.Tool)
	assert.Contains(t, payload.Error.Message, "Nobody")
}

func TestDispatch_CanceledContext(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dispatch(ctx, string(RollDice), map[string]any{"dice_num": 1.0, "faces": 6.0})
	assert.True(t, errors.Is(err, context.Canceled))
}

func jsonInt(t *testing.T, s, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return string(m[key])
}

func TestWithSearchLimit(t *testing.T) {
	r := &fakeRetriever{}
	d, _ := newDispatcher(t, r, WithSearchLimit(8))
	_, err := d.Dispatch(context.Background(), "retrieve_coc_rules_chase", map[string]any{"query": "hazards"})
	require.NoError(t, err)
	assert.Equal(t, 8, r.lastLimit)
}
