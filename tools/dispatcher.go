// Package tools routes model tool calls to the character engine and the
// corpus store. Arguments are validated against each tool's schema before
// any handler runs, and failures come back as structured payloads.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/types"
)

// Retriever is the read side of the corpus store.
type Retriever interface {
	Search(ctx context.Context, document, query string, k int) ([]types.Hit, error)
	SearchAllText(ctx context.Context, query string, k int) ([]types.Hit, error)
	FullDocument(ctx context.Context, document string) ([]types.Passage, error)
	ListDocuments(ctx context.Context) ([]string, error)
}

type handler func(ctx context.Context, a args) (any, error)

type entry struct {
	spec   types.ToolSpec
	handle handler
}

// Dispatcher executes tool calls for one session.
type Dispatcher struct {
	engine   *engine.Engine
	corpus   Retriever
	log      *zap.Logger
	sections []Section
	scenario string
	limit    int

	entries map[string]entry
	order   []string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithSections replaces the rulebook sections.
func WithSections(s []Section) Option {
	return func(d *Dispatcher) { d.sections = s }
}

// WithSearchLimit sets the number of passages returned when a call gives
// no limit.
func WithSearchLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// WithScenarioDocument enables search_scenario over the named document.
func WithScenarioDocument(name string) Option {
	return func(d *Dispatcher) { d.scenario = name }
}

// New builds the dispatch table. With a nil retriever only the resolution
// tools are registered.
func New(e *engine.Engine, r Retriever, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine:   e,
		corpus:   r,
		log:      zap.NewNop(),
		sections: DefaultSections(),
		limit:    DefaultLimit,
		entries:  map[string]entry{},
	}
	for _, opt := range opts {
		opt(d)
	}

	handlers := map[Name]handler{
		RollDice:              d.rollDice,
		CreateRole:            d.createRole,
		PerformSkillCheck:     d.skillCheck,
		ApplyDamage:           d.applyDamage,
		ApplySanityDamage:     d.applySanityDamage,
		PerformAttack:         d.attack,
		AttemptDodge:          d.dodge,
		FightBack:             d.fightBack,
		ImproveSkill:          d.improveSkill,
		GetInvestigatorStatus: d.status,
		StartCombat:           d.startCombat,
		EndCombat:             d.endCombat,
		CheckMadness:          d.checkMadness,
		RemoveInvestigator:    d.removeInvestigator,
	}
	for _, spec := range resolutionSpecs {
		d.register(spec, handlers[Name(spec.Name)])
	}

	if r == nil {
		return d
	}
	for _, s := range d.sections {
		d.register(sectionSpec(s), d.section(s.Document))
	}
	d.register(searchAllSpec, d.searchAll)
	d.register(listDocumentsSpec, d.listDocuments)
	if d.scenario != "" {
		d.register(searchScenarioSpec, d.section(d.scenario))
	}
	return d
}

func (d *Dispatcher) register(spec types.ToolSpec, h handler) {
	if _, ok := d.entries[spec.Name]; !ok {
		d.order = append(d.order, spec.Name)
	}
	d.entries[spec.Name] = entry{spec: spec, handle: h}
}

// Catalog returns the tool specs in registration order.
func (d *Dispatcher) Catalog() []types.ToolSpec {
	out := make([]types.ToolSpec, len(d.order))
	for i, name := range d.order {
		out[i] = d.entries[name].spec
	}
	return out
}

// Has reports whether name is a registered tool.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.entries[name]
	return ok
}

// Dispatch validates args and runs the named tool.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, arguments map[string]any) (any, error) {
	e, ok := d.entries[name]
	if !ok {
		return nil, &Error{Tool: name, Kind: KindUnknownTool, Err: fmt.Errorf("%w: %q", ErrUnknownTool, name)}
	}
	if arguments == nil {
		arguments = map[string]any{}
	}
	if err := validate(e.spec.Parameters, arguments, ""); err != nil {
		return nil, wrap(name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, wrap(name, err)
	}
	out, err := e.handle(ctx, args(arguments))
	if err != nil {
		return nil, wrap(name, err)
	}
	return out, nil
}

// Invoke runs call and renders the result as JSON. Errors are rendered as
// {"error":{...}} payloads and never returned.
func (d *Dispatcher) Invoke(ctx context.Context, call types.ToolCall) types.Invocation {
	inv := types.Invocation{Call: call}
	out, err := d.Dispatch(ctx, call.Name, call.Args)
	if err == nil {
		b, merr := json.Marshal(out)
		if merr == nil {
			inv.Output = string(b)
			d.log.Debug("tool call",
				zap.String("tool", call.Name),
				zap.String("call_id", call.ID),
				zap.Any("args", call.Args),
			)
			return inv
		}
		err = &Error{Tool: call.Name, Kind: KindInternal, Err: merr}
	}

	inv.Failed = true
	inv.Output = Failure(call.Name, err)
	d.log.Warn("tool call failed",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.String("kind", string(KindOf(err))),
		zap.Error(err),
	)
	return inv
}

type failurePayload struct {
	Error failureBody `json:"error"`
}

type failureBody struct {
	Kind    Kind   `json:"kind"`
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

// Failure renders err as the payload returned to the model.
func Failure(tool string, err error) string {
	b, _ := json.Marshal(failurePayload{Error: failureBody{
		Kind:    KindOf(err),
		Tool:    tool,
		Message: err.Error(),
	}})
	return string(b)
}

// Retrieval handlers.

type passageResult struct {
	Content        string  `json:"content"`
	Document       string  `json:"document"`
	Page           *int    `json:"page,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

type searchResult struct {
	Query    string          `json:"query"`
	Document string          `json:"document,omitempty"`
	Results  []passageResult `json:"results"`
}

type documentResult struct {
	Document string   `json:"document"`
	Content  []string `json:"content"`
}

func results(hits []types.Hit) []passageResult {
	out := make([]passageResult, len(hits))
	for i, h := range hits {
		out[i] = passageResult{
			Content:        h.Text,
			Document:       h.Document,
			Page:           h.Page,
			RelevanceScore: math.Round(h.Score*1000) / 1000,
		}
	}
	return out
}

func (d *Dispatcher) section(document string) handler {
	return func(ctx context.Context, a args) (any, error) {
		query := a.text("query")
		if query == "" {
			passages, err := d.corpus.FullDocument(ctx, document)
			if err != nil {
				return nil, err
			}
			content := make([]string, len(passages))
			for i, p := range passages {
				content[i] = p.Text
			}
			return documentResult{Document: document, Content: content}, nil
		}
		hits, err := d.corpus.Search(ctx, document, query, a.numOr("limit", d.limit))
		if err != nil {
			return nil, err
		}
		return searchResult{Query: query, Document: document, Results: results(hits)}, nil
	}
}

func (d *Dispatcher) searchAll(ctx context.Context, a args) (any, error) {
	query := a.text("query")
	hits, err := d.corpus.SearchAllText(ctx, query, a.numOr("limit", d.limit))
	if err != nil {
		return nil, err
	}
	return searchResult{Query: query, Results: results(hits)}, nil
}

func (d *Dispatcher) listDocuments(ctx context.Context, _ args) (any, error) {
	docs, err := d.corpus.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []string{}
	}
	return map[string][]string{"documents": docs}, nil
}
