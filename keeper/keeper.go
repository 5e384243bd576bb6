// Package keeper runs the bounded exchange between the player, the model
// and the tool dispatcher. One player input is processed to completion,
// including every tool round, before the next is accepted.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/keepercore/llm"
	"github.com/nathoo/keepercore/types"
)

// ErrModelUnavailable is returned when every attempt allowed by the round
// budget failed to reach the model.
var ErrModelUnavailable = errors.New("model unavailable")

// DefaultMaxRounds bounds the tool rounds of one turn.
const DefaultMaxRounds = 3

// Dispatcher executes tool calls.
type Dispatcher interface {
	Catalog() []types.ToolSpec
	Invoke(ctx context.Context, call types.ToolCall) types.Invocation
}

// Keeper owns the conversation of one session.
type Keeper struct {
	model       llm.Model
	tools       Dispatcher
	log         *zap.Logger
	maxRounds   int
	callTimeout time.Duration

	turn sync.Mutex

	mu      sync.RWMutex
	system  string
	history []types.Message
}

// Option configures a Keeper.
type Option func(*Keeper)

// WithMaxRounds sets the round budget. Values below zero are treated as zero.
func WithMaxRounds(n int) Option {
	return func(k *Keeper) { k.maxRounds = max(n, 0) }
}

// WithCallTimeout bounds each model call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(k *Keeper) { k.callTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(k *Keeper) { k.log = l }
}

// New creates a keeper with no scenario loaded.
func New(model llm.Model, tools Dispatcher, opts ...Option) *Keeper {
	k := &Keeper{
		model:     model,
		tools:     tools,
		log:       zap.NewNop(),
		maxRounds: DefaultMaxRounds,
		system:    SystemPrompt("", ""),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// LoadScenario regenerates the system prompt from the scenario text. The
// conversation is kept.
func (k *Keeper) LoadScenario(title, text string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.system = SystemPrompt(title, text)
}

// System returns the current system prompt.
func (k *Keeper) System() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.system
}

// History returns a copy of the conversation.
func (k *Keeper) History() []types.Message {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.history)
}

// Restore replaces the conversation, e.g. after loading a save.
func (k *Keeper) Restore(messages []types.Message) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.history = slices.Clone(messages)
}

// Outcome is the result of one turn.
type Outcome struct {
	// Content is the final narration. It may be empty.
	Content string
	// Rounds is the number of budget units consumed.
	Rounds      int
	Invocations []types.Invocation
	// Pending holds tool calls the model asked for after the budget ran out.
	// They were not executed and are not in the history.
	Pending   []types.ToolCall
	Exhausted bool
}

// Empty reports whether the turn ended without narration.
func (o Outcome) Empty() bool { return strings.TrimSpace(o.Content) == "" }

type phase int

const (
	awaitingModel phase = iota
	executingTools
	done
	failed
)

func (p phase) String() string {
	switch p {
	case awaitingModel:
		return "awaiting_model"
	case executingTools:
		return "executing_tools"
	case done:
		return "done"
	default:
		return "failed"
	}
}

// Turn processes one player input. On failure the conversation is left as
// it was before the turn; role state changed by executed tools is not
// rolled back.
func (k *Keeper) Turn(ctx context.Context, input string) (Outcome, error) {
	k.turn.Lock()
	defer k.turn.Unlock()

	k.mu.RLock()
	system := k.system
	msgs := append(slices.Clone(k.history), types.Message{Role: types.RoleUser, Content: UserPrompt(input)})
	k.mu.RUnlock()

	var (
		out     Outcome
		budget  = k.maxRounds
		calls   []types.ToolCall
		lastErr error
		p       = awaitingModel
	)
	catalog := k.tools.Catalog()

	for p != done && p != failed {
		k.log.Debug("keeper phase", zap.Stringer("phase", p), zap.Int("rounds_left", budget))
		switch p {
		case awaitingModel:
			res, err := k.complete(ctx, llm.Request{System: system, Messages: msgs, Tools: catalog})
			if err != nil {
				lastErr = err
				if ctx.Err() != nil || budget == 0 {
					p = failed
					continue
				}
				budget--
				out.Rounds++
				k.log.Warn("model call failed, retrying",
					zap.Int("rounds_left", budget),
					zap.Error(err),
				)
				continue
			}

			if len(res.ToolCalls) == 0 {
				out.Content = res.Content
				msgs = append(msgs, types.Message{Role: types.RoleAssistant, Content: res.Content})
				p = done
				continue
			}
			if budget == 0 {
				out.Content = res.Content
				out.Pending = res.ToolCalls
				out.Exhausted = true
				msgs = append(msgs, types.Message{Role: types.RoleAssistant, Content: res.Content})
				p = done
				continue
			}
			calls = res.ToolCalls
			msgs = append(msgs, types.Message{Role: types.RoleAssistant, Content: res.Content, ToolCalls: calls})
			p = executingTools

		case executingTools:
			for _, call := range calls {
				inv := k.tools.Invoke(ctx, call)
				out.Invocations = append(out.Invocations, inv)
				msgs = append(msgs, types.Message{
					Role:       types.RoleTool,
					Content:    inv.Output,
					ToolCallID: call.ID,
					ToolName:   call.Name,
				})
			}
			budget--
			out.Rounds++
			calls = nil
			p = awaitingModel
		}
	}

	if p == failed {
		k.log.Error("turn failed", zap.Int("rounds", out.Rounds), zap.Error(lastErr))
		return out, fmt.Errorf("%w: %w", ErrModelUnavailable, lastErr)
	}

	k.mu.Lock()
	k.history = msgs
	k.mu.Unlock()

	k.log.Info("turn complete",
		zap.Int("rounds", out.Rounds),
		zap.Int("tool_calls", len(out.Invocations)),
		zap.Int("pending", len(out.Pending)),
		zap.Bool("exhausted", out.Exhausted),
	)
	return out, nil
}

func (k *Keeper) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if k.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.callTimeout)
		defer cancel()
	}
	res, err := k.model.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &llm.Response{}, nil
	}
	return res, nil
}
