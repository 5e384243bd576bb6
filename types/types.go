// Package types defines the shared data structures for the keepercore session.
// This package contains only type definitions, no logic and no methods.
package types

// Page is one page of source text handed to ingestion.
// Number is 1-based; zero means the text has no page.
type Page struct {
	Number int
	Text   string
}

// Passage is a retrievable chunk of a rulebook or scenario document.
// Identity is (Document, Page, ChunkIndex). Passages are immutable once stored.
type Passage struct {
	Document   string    `json:"document"`
	Page       *int      `json:"page,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// Hit is a passage with the score the index assigned it.
// Higher is better; the scale depends on the backend.
type Hit struct {
	Passage
	Score float64 `json:"relevance_score"`
}

// Attributes are the primary characteristics of a role.
type Attributes struct {
	STR int `json:"str"`
	CON int `json:"con"`
	SIZ int `json:"siz"`
	DEX int `json:"dex"`
	APP int `json:"app"`
	INT int `json:"int"`
	POW int `json:"pow"`
	EDU int `json:"edu"`
	MOV int `json:"mov"`
}

// Role is an investigator or NPC.
type Role struct {
	Name         string         `json:"name"`
	Occupation   string         `json:"occupation,omitempty"`
	IsPlayer     bool           `json:"is_player"`
	Attributes   Attributes     `json:"attributes"`
	CreditRating int            `json:"credit_rating,omitempty"`
	Skills       map[string]int `json:"skills"`

	// Derived at creation.
	MaxHP       int    `json:"max_hp"`
	MaxMP       int    `json:"max_mp"`
	MaxSAN      int    `json:"max_san"`
	Luck        int    `json:"luck"`
	Build       int    `json:"build"`
	DamageBonus string `json:"damage_bonus"`

	// Current values. Never clamped.
	HP         int `json:"hp"`
	MP         int `json:"mp"`
	SAN        int `json:"san"`
	LuckPoints int `json:"luck_points"`
}

// RoleSpec is the input for role creation.
type RoleSpec struct {
	Name         string
	Occupation   string
	IsPlayer     bool
	Attributes   Attributes
	CreditRating int
	Skills       map[string]int
}

// Difficulty scales a skill target.
type Difficulty string

const (
	DifficultyNormal  Difficulty = "normal"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

// DamageType selects the physical damage multiplier.
type DamageType string

const (
	DamageNormal DamageType = "normal"
	DamageMajor  DamageType = "major"
)

// SanityDamageType classifies a sanity loss.
type SanityDamageType string

const (
	SanityTemporary  SanityDamageType = "temporary"
	SanityIndefinite SanityDamageType = "indefinite"
	SanityPermanent  SanityDamageType = "permanent"
)

// Madness is the outcome of a madness classification.
type Madness string

const (
	MadnessNone       Madness = "none"
	MadnessTemporary  Madness = "temporary"
	MadnessIndefinite Madness = "indefinite"
	MadnessPermanent  Madness = "permanent"
)

// Weapon is an arsenal entry declared by a scenario.
type Weapon struct {
	Name   string `json:"name"`
	Skill  string `json:"skill"`
	Damage string `json:"damage"` // dice notation, e.g. "1D10"
}

// Encounter is an active combat.
type Encounter struct {
	ID    string   `json:"combat_id"`
	Order []string `json:"order"`
}

// MessageRole identifies who produced a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolCall is a model request to invoke a named tool.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one entry of the conversation log.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolName   string      `json:"tool_name,omitempty"`
}

// Schema is the subset of JSON Schema used to describe tool parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// ToolSpec advertises a tool to the model.
type ToolSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`
}

// Invocation records one dispatched tool call and what came back.
type Invocation struct {
	Call   ToolCall `json:"call"`
	Output string   `json:"output"`
	Failed bool     `json:"failed"`
}
