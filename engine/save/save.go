// Package save implements JSON serialization and deserialization of a session.
package save

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/types"
)

// FormatVersion is written into every save.
const FormatVersion = "1"

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version      string          `json:"version"`
	Scenario     string          `json:"scenario"`
	SavedAt      time.Time       `json:"saved_at"`
	RNGSeed      int64           `json:"rng_seed"`
	RNGPosition  int64           `json:"rng_position"`
	Players      []types.Role    `json:"players"`
	NPCs         []types.Role    `json:"npcs"`
	Conversation []types.Message `json:"conversation"`
}

// Save serializes the session and conversation to JSON bytes.
func Save(e *engine.Engine, scenario string, conversation []types.Message) ([]byte, error) {
	rng := e.RNG()
	data := SaveData{
		Version:      FormatVersion,
		Scenario:     scenario,
		SavedAt:      time.Now().UTC(),
		RNGSeed:      rng.Seed(),
		RNGPosition:  rng.Position(),
		Players:      e.Players.All(),
		NPCs:         e.NPCs.All(),
		Conversation: conversation,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("decode save: %w", err)
	}
	// Ensure slices and skill maps are never nil after load.
	if sd.Players == nil {
		sd.Players = []types.Role{}
	}
	if sd.NPCs == nil {
		sd.NPCs = []types.Role{}
	}
	if sd.Conversation == nil {
		sd.Conversation = []types.Message{}
	}
	for _, roles := range [][]types.Role{sd.Players, sd.NPCs} {
		for i := range roles {
			if roles[i].Skills == nil {
				roles[i].Skills = map[string]int{}
			}
		}
	}
	return &sd, nil
}

// ApplySave restores roles and RNG onto an engine. Roles already registered
// under the same name are overwritten.
func ApplySave(e *engine.Engine, sd *SaveData) {
	for i := range sd.Players {
		r := sd.Players[i]
		r.IsPlayer = true
		e.Players.Put(&r)
	}
	for i := range sd.NPCs {
		r := sd.NPCs[i]
		r.IsPlayer = false
		e.NPCs.Put(&r)
	}
	e.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
}
