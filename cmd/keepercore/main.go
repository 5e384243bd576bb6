// keepercore runs an LLM keeper for Call of Cthulhu scenarios.
// Usage: keepercore [--config <file>] [--verbose] <play|ingest|mcp> <scenario_directory>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathoo/keepercore/config"
	"github.com/nathoo/keepercore/logging"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// play flags
	plain      bool
	scriptFile string
	trace      bool

	// ingest flags
	rulesDir string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "keepercore",
	Short:         "An LLM keeper for Call of Cthulhu scenarios",
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log, verbose)
		if err != nil {
			return err
		}
		logger.Debug("config loaded",
			zap.String("model", cfg.Model.Name),
			zap.String("embedding", cfg.Embedding.Provider),
			zap.String("corpus", cfg.Corpus.Backend),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var playCmd = &cobra.Command{
	Use:   "play <scenario_directory>",
	Short: "Play a scenario with the keeper",
	Long: `Loads the scenario pack, ingests its module and rulebooks into the
corpus if they are not there yet, and starts a session.

The full-screen interface is used when stdout is a terminal; --plain or a
redirected stdout selects the line interface. --script replays a file of
inputs through the line interface.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [scenario_directory]",
	Short: "Embed scenario and rulebook text into the corpus",
	Long: `Re-ingests a scenario pack's module and rulebooks. Each document's
old passages are dropped in the same write that stores the new ones, so
repeated runs never duplicate text. --rules ingests every .txt file of a
directory as a rulebook named after the file; pages are separated by form
feeds.

Example:
  keepercore ingest --rules ./coc7e ./scenarios/the-haunting`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp <scenario_directory>",
	Short: "Serve the keeper tools over MCP on stdio",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCP,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.keepercore/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	playCmd.Flags().BoolVar(&plain, "plain", false, "Use the line interface")
	playCmd.Flags().StringVar(&scriptFile, "script", "", "Replay inputs from a file")
	playCmd.Flags().BoolVar(&trace, "trace", false, "Show tool calls")

	ingestCmd.Flags().StringVar(&rulesDir, "rules", "", "Directory of rulebook .txt files")

	rootCmd.AddCommand(playCmd, ingestCmd, mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
