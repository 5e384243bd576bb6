// Package session holds what the plain and full-screen front ends share: the
// keeper turn, meta-commands, and save files.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/engine/save"
	"github.com/nathoo/keepercore/keeper"
	"github.com/nathoo/keepercore/types"
)

// DefaultSave is the save name used when none is given.
const DefaultSave = "quicksave"

var (
	// ErrNothingToRepeat is returned by Play for "again" before any action.
	ErrNothingToRepeat = errors.New("nothing to repeat")
	// ErrBadSaveName rejects names that would escape the save directory.
	ErrBadSaveName = errors.New("invalid save name")
	// ErrWrongScenario is returned when a save belongs to another scenario.
	ErrWrongScenario = errors.New("save belongs to another scenario")
)

// Lister lists the documents in the corpus.
type Lister interface {
	ListDocuments(ctx context.Context) ([]string, error)
}

// Session is one play-through of a scenario.
type Session struct {
	Keeper  *keeper.Keeper
	Engine  *engine.Engine
	Docs    Lister // optional
	Title   string
	Intro   string
	SaveDir string
	Trace   bool

	last string
}

// Play sends a player action to the keeper. "again" and "g" repeat the
// previous action.
func (s *Session) Play(ctx context.Context, input string) (keeper.Outcome, error) {
	input = strings.TrimSpace(input)
	if lower := strings.ToLower(input); lower == "again" || lower == "g" {
		if s.last == "" {
			return keeper.Outcome{}, ErrNothingToRepeat
		}
		input = s.last
	} else {
		s.last = input
	}
	return s.Keeper.Turn(ctx, input)
}

// Narration renders a turn outcome as output lines. System notes are
// bracketed.
func (s *Session) Narration(out keeper.Outcome, err error) []string {
	var lines []string
	if s.Trace {
		lines = append(lines, Trace(out)...)
	}
	switch {
	case errors.Is(err, ErrNothingToRepeat):
		return append(lines, "[Nothing to repeat.]")
	case err != nil:
		return append(lines, fmt.Sprintf("[The keeper is unavailable: %v]", err))
	}
	if out.Empty() {
		lines = append(lines, "[The keeper says nothing.]")
	} else {
		lines = append(lines, strings.Split(strings.TrimSpace(out.Content), "\n")...)
	}
	if out.Exhausted {
		lines = append(lines, fmt.Sprintf("[Tool budget exhausted; %d call(s) left unanswered.]", len(out.Pending)))
	}
	return lines
}

// Trace lists the tool calls a turn made.
func Trace(out keeper.Outcome) []string {
	var lines []string
	if len(out.Invocations) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Tool calls: %d over %d round(s)", len(out.Invocations), out.Rounds))
	}
	for _, inv := range out.Invocations {
		mark := "ok"
		if inv.Failed {
			mark = "failed"
		}
		lines = append(lines, fmt.Sprintf("[trace]   %s (%s) %s", inv.Call.Name, mark, inv.Output))
	}
	for _, call := range out.Pending {
		lines = append(lines, fmt.Sprintf("[trace]   %s (pending)", call.Name))
	}
	return lines
}

// Meta runs a slash command and returns its output lines, and whether the
// session should end.
func (s *Session) Meta(ctx context.Context, input string) ([]string, bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, false
	}
	cmd := parts[0]
	arg := strings.Join(parts[1:], " ")

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true
	case "/help":
		return Help(), false
	case "/save":
		name, err := s.Save(arg)
		if err != nil {
			return []string{fmt.Sprintf("Save failed: %v", err)}, false
		}
		return []string{fmt.Sprintf("Game saved to %s.", name)}, false
	case "/load":
		name, sd, err := s.Load(arg)
		if err != nil {
			return []string{fmt.Sprintf("Load failed: %v", err)}, false
		}
		return []string{fmt.Sprintf("Game loaded from %s (%d messages).", name, len(sd.Conversation))}, false
	case "/status":
		return s.StatusLines(arg), false
	case "/roles":
		return s.RoleLines(), false
	case "/docs":
		return s.DocLines(ctx), false
	case "/trace":
		s.Trace = !s.Trace
		if s.Trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false
	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

// Help lists the meta-commands.
func Help() []string {
	return []string{
		"System:",
		"  /save [name]    Save game (default: quicksave)",
		"  /load [name]    Load game (default: quicksave)",
		"  /status [name]  Show an investigator's HP, MP, SAN and luck",
		"  /roles          List investigators and NPCs",
		"  /docs           List searchable documents",
		"  /trace          Toggle tool call trace",
		"  /quit           Exit game",
		"  /help           Show this help",
		"",
		"Anything else is an action for the keeper.",
		"  again (g)       Repeat your last action",
	}
}

// StatusLines reports one role, or every investigator when name is empty.
func (s *Session) StatusLines(name string) []string {
	if name != "" {
		st, err := s.Engine.Status(name)
		if err != nil {
			return []string{err.Error()}
		}
		return []string{formatStatus(st)}
	}
	players := s.Engine.Players.All()
	if len(players) == 0 {
		return []string{"No investigators."}
	}
	lines := make([]string, 0, len(players))
	for _, r := range players {
		lines = append(lines, formatStatus(engine.StatusOf(r)))
	}
	return lines
}

func formatStatus(st engine.Status) string {
	line := fmt.Sprintf("%s  HP %s  MP %s  SAN %s  Luck %d", st.Name, st.HP, st.MP, st.SAN, st.Luck)
	if !st.Conscious {
		line += "  (unconscious)"
	}
	if !st.Sane {
		line += "  (insane)"
	}
	return line
}

// RoleLines lists both registries.
func (s *Session) RoleLines() []string {
	lines := []string{"Investigators:"}
	lines = append(lines, roleNames(s.Engine.Players.All())...)
	lines = append(lines, "NPCs:")
	return append(lines, roleNames(s.Engine.NPCs.All())...)
}

func roleNames(roles []types.Role) []string {
	if len(roles) == 0 {
		return []string{"  (none)"}
	}
	out := make([]string, len(roles))
	for i, r := range roles {
		if r.Occupation != "" {
			out[i] = fmt.Sprintf("  %s, %s", r.Name, r.Occupation)
		} else {
			out[i] = "  " + r.Name
		}
	}
	return out
}

// DocLines lists the corpus documents.
func (s *Session) DocLines(ctx context.Context) []string {
	if s.Docs == nil {
		return []string{"No corpus attached."}
	}
	docs, err := s.Docs.ListDocuments(ctx)
	if err != nil {
		return []string{fmt.Sprintf("Listing documents failed: %v", err)}
	}
	if len(docs) == 0 {
		return []string{"The corpus is empty."}
	}
	lines := make([]string, 0, len(docs)+1)
	lines = append(lines, "Documents:")
	for _, d := range docs {
		lines = append(lines, "  "+d)
	}
	return lines
}

func (s *Session) savePath(name string) (string, string, error) {
	if name == "" {
		name = DefaultSave
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", "", fmt.Errorf("%w: %q", ErrBadSaveName, name)
	}
	return name, filepath.Join(s.SaveDir, name+".json"), nil
}

// Save writes roles, RNG position and the conversation to SaveDir.
func (s *Session) Save(name string) (string, error) {
	name, path, err := s.savePath(name)
	if err != nil {
		return "", err
	}
	data, err := save.Save(s.Engine, s.Title, s.Keeper.History())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.SaveDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Load restores a save written for the same scenario.
func (s *Session) Load(name string) (string, *save.SaveData, error) {
	name, path, err := s.savePath(name)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	sd, err := save.Load(data)
	if err != nil {
		return "", nil, err
	}
	if sd.Scenario != s.Title {
		return "", nil, fmt.Errorf("%w: %q", ErrWrongScenario, sd.Scenario)
	}
	save.ApplySave(s.Engine, sd)
	s.Keeper.Restore(sd.Conversation)
	return name, sd, nil
}
