package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/nathoo/keepercore/cli"
	"github.com/nathoo/keepercore/config"
	"github.com/nathoo/keepercore/corpus"
	"github.com/nathoo/keepercore/embedding"
	embedgemini "github.com/nathoo/keepercore/embedding/gemini"
	"github.com/nathoo/keepercore/engine"
	"github.com/nathoo/keepercore/keeper"
	llmgemini "github.com/nathoo/keepercore/llm/gemini"
	"github.com/nathoo/keepercore/loader"
	"github.com/nathoo/keepercore/mcpserver"
	"github.com/nathoo/keepercore/session"
	"github.com/nathoo/keepercore/tools"
	"github.com/nathoo/keepercore/tui"
)

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pack, err := loadPack(args[0])
	if err != nil {
		return err
	}

	model, err := llmgemini.New(ctx, cfg.Model.APIKey, cfg.Model.Name, cfg.Model.Temperature)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, model.GenAI())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := ingestPack(ctx, store, pack, false); err != nil {
		return err
	}

	e, d, err := newDispatcher(pack, store)
	if err != nil {
		return err
	}
	k := keeper.New(model, d,
		keeper.WithMaxRounds(cfg.Keeper.MaxRounds),
		keeper.WithCallTimeout(cfg.Model.Timeout),
		keeper.WithLogger(logger),
	)
	k.LoadScenario(pack.Scenario.Title, scenarioText(pack))

	s := &session.Session{
		Keeper:  k,
		Engine:  e,
		Docs:    store,
		Title:   pack.Scenario.Title,
		Intro:   pack.Scenario.Intro,
		SaveDir: cfg.SaveDir,
		Trace:   trace,
	}

	// Script mode: open file, force plain, echo inputs.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(s)
		c.In = f
		c.EchoInput = true
		c.Run(ctx)
		return nil
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		cli.New(s).Run(ctx)
		return nil
	}
	return tui.Run(ctx, s)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if len(args) == 0 && rulesDir == "" {
		return errors.New("nothing to ingest: give a scenario directory or --rules")
	}

	store, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	if rulesDir != "" {
		if err := ingestRules(ctx, store, rulesDir); err != nil {
			return err
		}
	}
	if len(args) == 1 {
		pack, err := loadPack(args[0])
		if err != nil {
			return err
		}
		if err := ingestPack(ctx, store, pack, true); err != nil {
			return err
		}
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Corpus holds %d document(s): %s\n", len(docs), strings.Join(docs, ", "))
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pack, err := loadPack(args[0])
	if err != nil {
		return err
	}
	store, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := ingestPack(ctx, store, pack, false); err != nil {
		return err
	}
	_, d, err := newDispatcher(pack, store)
	if err != nil {
		return err
	}

	server, err := mcpserver.New(d, version, logger)
	if err != nil {
		return err
	}
	logger.Info("serving MCP on stdio", zap.Int("tools", len(d.Catalog())))
	return mcpserver.ServeStdio(ctx, server)
}

// loadPack loads a scenario and logs its warnings.
func loadPack(dir string) (*loader.Pack, error) {
	pack, err := loader.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	for _, w := range pack.Warnings {
		logger.Warn("scenario warning", zap.String("dir", dir), zap.String("warning", w))
	}
	return pack, nil
}

// openStore builds the configured embedder and index. A shared genai client
// is reused for Gemini embeddings when given.
func openStore(ctx context.Context, client *genai.Client) (*corpus.Store, error) {
	var emb embedding.Embedder
	switch cfg.Embedding.Provider {
	case config.ProviderHashing:
		emb = embedding.NewHashing(cfg.Embedding.Dimensions)
	default:
		if client != nil {
			emb = embedgemini.NewFromClient(client, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		} else {
			g, err := embedgemini.New(ctx, cfg.Model.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
			if err != nil {
				return nil, err
			}
			emb = g
		}
	}
	emb = embedding.NewRateLimited(emb, cfg.Embedding.RatePerSecond, cfg.Embedding.Burst)

	var idx corpus.Index
	switch cfg.Corpus.Backend {
	case config.BackendFlat:
		idx = corpus.NewFlatIndex(cfg.Embedding.Dimensions)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Corpus.Path), 0o755); err != nil {
			return nil, fmt.Errorf("corpus directory: %w", err)
		}
		s, err := corpus.OpenSQLite(ctx, cfg.Corpus.Path, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		idx = s
	}

	store, err := corpus.NewStore(idx, emb,
		corpus.WithChunkSize(cfg.Corpus.ChunkSize),
		corpus.WithLogger(logger),
	)
	if err != nil {
		idx.Close()
		return nil, err
	}
	return store, nil
}

// ingestPack stores the module text and the pack's rulebooks. Unless force
// is set, documents already in the corpus are left alone; with force they
// are replaced, never appended to.
func ingestPack(ctx context.Context, store *corpus.Store, pack *loader.Pack, force bool) error {
	ingest := func(doc string, write func() (int, error)) error {
		if !force {
			has, err := store.HasDocument(ctx, doc)
			if err != nil {
				return err
			}
			if has {
				logger.Debug("document already ingested", zap.String("document", doc))
				return nil
			}
		}
		if _, err := write(); err != nil {
			return fmt.Errorf("ingesting %s: %w", doc, err)
		}
		return nil
	}

	if len(pack.Paragraphs) > 0 {
		doc := pack.Document()
		if err := ingest(doc, func() (int, error) {
			return store.ReplaceParagraphs(ctx, doc, pack.Paragraphs)
		}); err != nil {
			return err
		}
	}
	for _, rb := range pack.Rulebooks {
		doc := tools.RulebookSection(rb.Name, "").Document
		if err := ingest(doc, func() (int, error) {
			return store.ReplaceDocument(ctx, doc, rb.Pages)
		}); err != nil {
			return err
		}
	}
	return nil
}

// ingestRules stores every .txt file of dir as a rulebook named after the
// file, replacing an earlier copy.
func ingestRules(ctx context.Context, store *corpus.Store, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt files found in %s", dir)
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(f), ".txt")
		if _, err := store.ReplaceDocument(ctx, name, loader.Pages(string(data))); err != nil {
			return fmt.Errorf("ingesting %s: %w", f, err)
		}
	}
	return nil
}

// newDispatcher builds the engine for a pack and the dispatcher over it.
func newDispatcher(pack *loader.Pack, store *corpus.Store) (*engine.Engine, *tools.Dispatcher, error) {
	e := engine.New(cfg.Keeper.ResolveSeed())
	if err := pack.Apply(e); err != nil {
		return nil, nil, err
	}
	opts := []tools.Option{
		tools.WithSections(pack.Sections()),
		tools.WithSearchLimit(cfg.Corpus.SearchLimit),
		tools.WithLogger(logger),
	}
	if len(pack.Paragraphs) > 0 {
		opts = append(opts, tools.WithScenarioDocument(pack.Document()))
	}
	return e, tools.New(e, store, opts...), nil
}

// scenarioText is the scenario block of the system prompt.
func scenarioText(pack *loader.Pack) string {
	parts := make([]string, 0, 2)
	if pack.Scenario.Intro != "" {
		parts = append(parts, pack.Scenario.Intro)
	}
	if text := pack.ModuleText(); text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
