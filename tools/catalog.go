package tools

import (
	"github.com/nathoo/keepercore/corpus"
	"github.com/nathoo/keepercore/types"
)

// Name identifies a tool.
type Name string

// Resolution tools.
const (
	RollDice              Name = "roll_dice"
	CreateRole            Name = "create_role"
	PerformSkillCheck     Name = "perform_skill_check"
	ApplyDamage           Name = "apply_damage"
	ApplySanityDamage     Name = "apply_sanity_damage"
	PerformAttack         Name = "perform_attack"
	AttemptDodge          Name = "attempt_dodge"
	FightBack             Name = "fight_back"
	ImproveSkill          Name = "improve_skill"
	GetInvestigatorStatus Name = "get_investigator_status"
	StartCombat           Name = "start_combat"
	EndCombat             Name = "end_combat"
	CheckMadness          Name = "check_madness"
	RemoveInvestigator    Name = "remove_investigator"
)

// Retrieval tools with fixed names.
const (
	SearchAllRules            Name = "search_all_rules"
	GetAvailableRuleDocuments Name = "get_available_rule_documents"
	SearchScenario            Name = "search_scenario"
)

// DefaultLimit is the number of passages a search returns when the call
// gives no limit.
const DefaultLimit = 5

// Section binds a rulebook retrieval tool to the document it reads.
type Section struct {
	Tool        string
	Document    string
	Description string
}

const rulesPrefix = "retrieve_coc_rules_"

// RulebookSection derives a section from a rulebook name.
func RulebookSection(name, description string) Section {
	doc := corpus.NormalizeName(name)
	return Section{Tool: rulesPrefix + doc, Document: doc, Description: description}
}

// DefaultSections are the rulebook sections of the core rules.
func DefaultSections() []Section {
	return []Section{
		RulebookSection("skills", "Rules for investigator skills: difficulty levels, specializations, opposed and combined checks, and individual skill descriptions."),
		RulebookSection("sanity", "Rules for sanity: sanity checks and loss notation, maximum sanity, temporary, indefinite and permanent madness, phobias and manias."),
		{
			Tool:        "retrieve_coc_mythos_creatures_gods",
			Document:    "mythos_creatures_gods",
			Description: "Bestiary of Mythos creatures, Great Old Ones and Outer Gods with their statistics, powers and sanity costs.",
		},
		RulebookSection("keeper_guide", "Guidance for the keeper: running scenes, portraying NPCs, setting difficulty, handouts and scenario design."),
		RulebookSection("game_system", "The core game system: when to roll, difficulty levels, pushing rolls, opposed checks, luck and credit rating."),
		RulebookSection("chase", "Rules for chases: establishing speed, locations, movement actions, hazards and barriers."),
		RulebookSection("combat", "Rules for combat: rounds and DEX order, fighting and firearms, maneuvers, fighting back, dodging, damage and healing."),
		RulebookSection("alien_technology", "Alien technology and artifacts of Mythos races such as the Mi-Go and the Serpent People."),
		RulebookSection("investigator_creation", "Investigator creation: characteristics, derived attributes, occupations and skill points."),
	}
}

func sectionSpec(s Section) types.ToolSpec {
	return types.ToolSpec{
		Name:        s.Tool,
		Description: s.Description + " Without a query the whole document is returned.",
		Parameters: object(nil, map[string]*types.Schema{
			"query": str("What to look up in this document."),
			"limit": integer("Maximum number of passages to return.", 1, 50),
		}),
	}
}

var difficulty = enum("Difficulty of the roll.", string(types.DifficultyNormal), string(types.DifficultyHard), string(types.DifficultyExtreme))

// resolutionSpecs describes the resolution tools in catalog order.
var resolutionSpecs = []types.ToolSpec{
	{
		Name:        string(RollDice),
		Description: "Roll dice_num dice with the given number of faces and add bonus. Returns the total.",
		Parameters: object([]string{"dice_num", "faces"}, map[string]*types.Schema{
			"dice_num": integer("Number of dice.", 1, 100),
			"faces":    integer("Faces per die.", 1, 1000),
			"bonus":    &types.Schema{Type: "integer", Description: "Added to the total."},
		}),
	},
	{
		Name:        string(CreateRole),
		Description: "Create an investigator or NPC from its characteristics and skills. Derived HP, MP, sanity, luck, build and damage bonus are computed.",
		Parameters: object(
			[]string{"name", "STR", "CON", "SIZ", "DEX", "APP", "INT", "POW", "EDU", "MOV", "occupation", "is_player"},
			map[string]*types.Schema{
				"name":          str("Unique name of the role."),
				"STR":           integer("Strength.", 1, 0),
				"CON":           integer("Constitution.", 1, 0),
				"SIZ":           integer("Size.", 1, 0),
				"DEX":           integer("Dexterity.", 1, 0),
				"APP":           integer("Appearance.", 1, 0),
				"INT":           integer("Intelligence.", 1, 0),
				"POW":           integer("Power.", 1, 0),
				"EDU":           integer("Education.", 1, 0),
				"MOV":           integer("Movement rate.", 1, 0),
				"credit_rating": integer("Credit rating.", 0, 99),
				"occupation":    str("Occupation."),
				"is_player":     boolean("True for an investigator, false for an NPC."),
				"skills": array("Skill values.", object([]string{"name", "value"}, map[string]*types.Schema{
					"name":  str("Skill name."),
					"value": integer("Skill value.", 0, 0),
				})),
			}),
	},
	{
		Name:        string(PerformSkillCheck),
		Description: "Roll a percentile skill check for a role. With allow_pushed a failed roll is pushed once.",
		Parameters: object([]string{"role_name", "skill_name"}, map[string]*types.Schema{
			"role_name":    str("The role making the check."),
			"skill_name":   str("The skill to check."),
			"difficulty":   difficulty,
			"allow_pushed": boolean("Push a failed roll once."),
		}),
	},
	{
		Name:        string(ApplyDamage),
		Description: "Apply physical damage to a role. Major damage is doubled.",
		Parameters: object([]string{"role_name", "damage"}, map[string]*types.Schema{
			"role_name":   str("The role taking damage."),
			"damage":      integer("Hit points lost.", 0, 0),
			"damage_type": enum("Kind of damage.", string(types.DamageNormal), string(types.DamageMajor)),
		}),
	},
	{
		Name:        string(ApplySanityDamage),
		Description: "Apply a sanity loss to a role. Permanent loss also lowers maximum sanity.",
		Parameters: object([]string{"role_name", "damage"}, map[string]*types.Schema{
			"role_name": str("The role losing sanity."),
			"damage":    integer("Sanity points lost.", 0, 0),
			"damage_type": enum("Kind of sanity loss.",
				string(types.SanityTemporary), string(types.SanityIndefinite), string(types.SanityPermanent)),
		}),
	},
	{
		Name:        string(PerformAttack),
		Description: "Attack a target with a weapon. On success the damage is applied to the target.",
		Parameters: object([]string{"attacker_name", "target_name", "weapon"}, map[string]*types.Schema{
			"attacker_name": str("The attacking role."),
			"target_name":   str("The role being attacked."),
			"weapon":        str("Weapon or unarmed attack, e.g. fist or kick."),
			"difficulty":    difficulty,
		}),
	},
	{
		Name:        string(AttemptDodge),
		Description: "Attempt to dodge an incoming attack.",
		Parameters: object([]string{"role_name"}, map[string]*types.Schema{
			"role_name":  str("The role dodging."),
			"difficulty": difficulty,
		}),
	},
	{
		Name:        string(FightBack),
		Description: "Fight back against an attacker. On success the damage is applied to the attacker.",
		Parameters: object([]string{"defender_name", "attacker_name", "weapon"}, map[string]*types.Schema{
			"defender_name": str("The role fighting back."),
			"attacker_name": str("The role that attacked."),
			"weapon":        str("Weapon or unarmed attack."),
			"difficulty":    difficulty,
		}),
	},
	{
		Name:        string(ImproveSkill),
		Description: "Raise one of a role's existing skills.",
		Parameters: object([]string{"role_name", "skill_name", "amount"}, map[string]*types.Schema{
			"role_name":  str("The role improving."),
			"skill_name": str("The skill to raise."),
			"amount":     integer("Points to add.", 0, 0),
		}),
	},
	{
		Name:        string(GetInvestigatorStatus),
		Description: "Report a role's HP, MP, sanity, luck and condition.",
		Parameters: object([]string{"role_name"}, map[string]*types.Schema{
			"role_name": str("The role to report."),
		}),
	},
	{
		Name:        string(StartCombat),
		Description: "Start a combat between the named roles. Returns the combat id and the DEX order.",
		Parameters: object([]string{"participants"}, map[string]*types.Schema{
			"participants": array("Names of the roles in the fight.", str("Role name.")),
		}),
	},
	{
		Name:        string(EndCombat),
		Description: "End a combat started with start_combat.",
		Parameters: object([]string{"combat_id"}, map[string]*types.Schema{
			"combat_id": str("The id returned by start_combat."),
		}),
	},
	{
		Name:        string(CheckMadness),
		Description: "Classify the madness a sanity loss causes for a role.",
		Parameters: object([]string{"role_name", "sanity_loss"}, map[string]*types.Schema{
			"role_name":   str("The role that lost sanity."),
			"sanity_loss": integer("Sanity lost in one go.", 0, 0),
		}),
	},
	{
		Name:        string(RemoveInvestigator),
		Description: "Remove an investigator who has left the game.",
		Parameters: object([]string{"role_name"}, map[string]*types.Schema{
			"role_name": str("The investigator to remove."),
		}),
	},
}

var (
	searchAllSpec = types.ToolSpec{
		Name:        string(SearchAllRules),
		Description: "Search every rulebook document for passages relevant to a query.",
		Parameters: object([]string{"query"}, map[string]*types.Schema{
			"query": str("What to look up."),
			"limit": integer("Maximum number of passages to return.", 1, 50),
		}),
	}
	listDocumentsSpec = types.ToolSpec{
		Name:        string(GetAvailableRuleDocuments),
		Description: "List the documents available for retrieval.",
		Parameters:  object(nil, map[string]*types.Schema{}),
	}
	searchScenarioSpec = types.ToolSpec{
		Name:        string(SearchScenario),
		Description: "Search the loaded scenario text: locations, clues, NPC notes and handouts. Without a query the whole text is returned.",
		Parameters: object(nil, map[string]*types.Schema{
			"query": str("What to look up in the scenario."),
			"limit": integer("Maximum number of passages to return.", 1, 50),
		}),
	}
)
