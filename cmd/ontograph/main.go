package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/ontograph/internal/config"
	"github.com/agenthands/ontograph/internal/core"
	"github.com/agenthands/ontograph/internal/logger"
)

var (
	cfg     *config.Config
	cfgPath string
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := newRootCmd()
	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ontograph",
		Short:        "Ontology-driven knowledge graph over tabular datasets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", envOr("CONFIG_PATH", "config/config.toml"), "path to the TOML config file")

	rootCmd.AddCommand(
		ingestCmd(),
		indicesCmd(),
		expandCmd(),
		provenanceCmd(),
		duplicatesCmd(),
		suggestCmd(),
		resolveCmd(),
		clusterCmd(),
	)
	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openEngine connects with the loaded config. Logs go to stderr, results to stdout.
func openEngine(cmd *cobra.Command) (*core.Engine, error) {
	lg, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return core.Open(cmd.Context(), cfg, lg, nil)
}

func closeEngine(e *core.Engine) {
	_ = e.Close(context.Background())
	e.Log.Sync()
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
