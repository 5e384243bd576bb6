package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/keeper"
	"github.com/nathoo/keepercore/llm"
	"github.com/nathoo/keepercore/session"
	"github.com/nathoo/keepercore/tools"
	"github.com/nathoo/keepercore/types"
)

// testModel checks the investigator's status once per action, then narrates
// the action back.
func testModel() llm.Model {
	return llm.ModelFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		last := req.Messages[len(req.Messages)-1]
		if last.Role == types.RoleUser {
			return &llm.Response{ToolCalls: []types.ToolCall{{
				ID:   "c1",
				Name: "get_investigator_status",
				Args: map[string]any{"role_name": "Harvey"},
			}}}, nil
		}
		var action string
		for _, m := range req.Messages {
			if m.Role == types.RoleUser {
				action = strings.TrimPrefix(m.Content, "Player action: ")
			}
		}
		return &llm.Response{Content: "You " + action + "."}, nil
	})
}

func newTestCLI(t *testing.T, input string, model llm.Model) (*CLI, *bytes.Buffer) {
	t.Helper()
	e := engine.New(11)
	if _, err := e.CreateRole(types.RoleSpec{
		Name:     "Harvey",
		IsPlayer: true,
		Attributes: types.Attributes{
			STR: 50, CON: 60, SIZ: 65, DEX: 70, APP: 45, INT: 80, POW: 55, EDU: 85, MOV: 8,
		},
	}); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c := &CLI{
		Session: &session.Session{
			Keeper:  keeper.New(model, tools.New(e, nil)),
			Engine:  e,
			Title:   "The Haunting",
			Intro:   "Boston, 1920s.",
			SaveDir: t.TempDir(),
		},
		In:  strings.NewReader(input),
		Out: &out,
	}
	return c, &out
}

func TestCLI_IntroAndNarration(t *testing.T) {
	c, out := newTestCLI(t, "open the door\n/quit\n", testModel())
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "The Haunting") || !strings.Contains(output, "Boston, 1920s.") {
		t.Error("expected title and intro in output")
	}
	if !strings.Contains(output, "You open the door.") {
		t.Errorf("expected narration, got:\n%s", output)
	}
	if !strings.Contains(output, "[Goodbye.]") {
		t.Error("expected goodbye on /quit")
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n/quit\n", testModel())
	c.Run(context.Background())

	output := out.String()
	for _, want := range []string{"/save", "/load", "/status", "/quit"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in help output", want)
		}
	}
}

func TestCLI_StatusCommand(t *testing.T) {
	c, out := newTestCLI(t, "/status Harvey\n/quit\n", testModel())
	c.Run(context.Background())

	if !strings.Contains(out.String(), "[Harvey  HP 12/12  MP 11/11  SAN 99/99") {
		t.Errorf("expected status line, got:\n%s", out.String())
	}
}

func TestCLI_TraceShowsToolCalls(t *testing.T) {
	c, out := newTestCLI(t, "/trace\nlisten\n/quit\n", testModel())
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "[trace]   get_investigator_status (ok)") {
		t.Errorf("expected traced tool call, got:\n%s", output)
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	c, out := newTestCLI(t, "search the desk\n/save test\n/quit\n", testModel())
	c.Session.SaveDir = dir
	c.Run(context.Background())
	if !strings.Contains(out.String(), "Game saved to test.") {
		t.Error("expected save confirmation")
	}

	c2, out2 := newTestCLI(t, "/load test\nagain\n/quit\n", testModel())
	c2.Session.SaveDir = dir
	c2.Run(context.Background())

	output := out2.String()
	if !strings.Contains(output, "Game loaded from test (4 messages).") {
		t.Errorf("expected load confirmation, got:\n%s", output)
	}
	if got := len(c2.Session.Keeper.History()); got != 4 {
		t.Errorf("expected restored history of 4 messages, got %d", got)
	}
	// "again" only repeats actions typed in this session.
	if !strings.Contains(output, "Nothing to repeat") {
		t.Error("expected 'Nothing to repeat' after a fresh load")
	}
}

func TestCLI_LoadNonexistent(t *testing.T) {
	c, out := newTestCLI(t, "/load nonexistent\n/quit\n", testModel())
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Load failed") {
		t.Error("expected load failure message")
	}
}

func TestCLI_UnknownMetaCommand(t *testing.T) {
	c, out := newTestCLI(t, "/bogus\n/quit\n", testModel())
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Unknown command") {
		t.Error("expected unknown command message")
	}
}

func TestCLI_Again_RepeatsLastAction(t *testing.T) {
	c, out := newTestCLI(t, "light a match\nagain\ng\n/quit\n", testModel())
	c.Run(context.Background())

	if n := strings.Count(out.String(), "You light a match."); n != 3 {
		t.Errorf("expected narration 3 times, got %d", n)
	}
}

func TestCLI_SkipsBlankAndCommentLines(t *testing.T) {
	calls := 0
	model := llm.ModelFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		calls++
		return &llm.Response{Content: "ok"}, nil
	})
	c, _ := newTestCLI(t, "\n# a comment\n\n/quit\n", model)
	c.Run(context.Background())

	if calls != 0 {
		t.Errorf("expected no keeper turns, got %d model calls", calls)
	}
}

func TestCLI_EchoInput(t *testing.T) {
	c, out := newTestCLI(t, "wait\n", testModel())
	c.EchoInput = true
	c.Run(context.Background())

	if !strings.Contains(out.String(), "> wait\n") {
		t.Errorf("expected echoed input, got:\n%s", out.String())
	}
}

func TestCLI_KeeperUnavailable(t *testing.T) {
	model := llm.ModelFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		return nil, errors.New("quota exceeded")
	})
	c, out := newTestCLI(t, "scream\n/quit\n", model)
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "[The keeper is unavailable:") || !strings.Contains(output, "quota exceeded") {
		t.Errorf("expected unavailable notice, got:\n%s", output)
	}
	if len(c.Session.Keeper.History()) != 0 {
		t.Error("failed turn should leave history empty")
	}
}
