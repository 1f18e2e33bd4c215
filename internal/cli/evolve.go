package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"anima/internal/evolve"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Mine recent logs for patterns and fold strong ones into memory",
}

var evolveAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Scan recent daily logs and write a pattern snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		evo := evolve.New(eng.Docs, eng.State, cfg.Evolution)
		snap, err := evo.Analyze()
		if err != nil {
			return err
		}
		if len(snap.Patterns) == 0 {
			fmt.Println("no patterns detected")
			return nil
		}
		for _, p := range snap.Patterns {
			fmt.Printf("%-14s %.2f  %s\n", p.Type, p.Confidence, p.Description)
		}
		return nil
	},
}

var evolveTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Attempt one evolution pass over the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		evo := evolve.New(eng.Docs, eng.State, cfg.Evolution)
		res, err := evo.Trigger()
		if err != nil {
			return err
		}
		if !res.Evolved {
			fmt.Printf("not evolved: %s\n", res.Reason)
			return nil
		}
		fmt.Printf("evolved (#%d), updated: %v\n", res.Total, res.Applied)
		return nil
	},
}

func init() {
	evolveCmd.AddCommand(evolveAnalyzeCmd)
	evolveCmd.AddCommand(evolveTriggerCmd)
}
