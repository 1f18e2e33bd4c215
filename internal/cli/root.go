package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"anima/internal/config"
	"anima/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:   "anima",
	Short: "Persistent, evolving memory for a conversational agent",
	Long:  "Anima maintains an agent's identity documents, compiles a budget-bounded context on every boot, guards the identity files against tampering, and periodically folds behavioral patterns back into persistent memory.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(entityCmd)
	rootCmd.AddCommand(genomeCmd)
	rootCmd.AddCommand(evolveCmd)
	rootCmd.AddCommand(stashCmd)
	rootCmd.AddCommand(hookCmd)
}

// openEngine loads config and wires the core engine for CLI commands.
func openEngine() (*engine.Engine, config.Config, error) {
	root, err := config.DefaultRoot()
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, cfg, fmt.Errorf("load config: %w", err)
	}
	eng, err := engine.Open(cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("open engine: %w", err)
	}
	return eng, cfg, nil
}
