package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var genomeCmd = &cobra.Command{
	Use:   "genome",
	Short: "Inspect and manage identity-document integrity",
}

var genomeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare identity documents against the accepted baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		devs, err := eng.Genome.Verify()
		if err != nil {
			return err
		}
		if len(devs) == 0 {
			fmt.Println("genome clean")
			return nil
		}
		for _, d := range devs {
			fmt.Printf("%s: %s\n", d.Name, d.Kind)
		}
		return nil
	},
}

var genomeAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept the current identity documents as the new baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		if err := eng.Genome.AcceptBaseline(); err != nil {
			return err
		}
		fmt.Println("baseline accepted")
		return nil
	},
}

var genomeRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore deviating identity documents from their baseline backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		restored, err := eng.Genome.Restore()
		if err != nil {
			return err
		}
		if len(restored) == 0 {
			fmt.Println("nothing to restore")
			return nil
		}
		for _, name := range restored {
			fmt.Printf("restored %s\n", name)
		}
		return nil
	},
}

func init() {
	genomeCmd.AddCommand(genomeStatusCmd)
	genomeCmd.AddCommand(genomeAcceptCmd)
	genomeCmd.AddCommand(genomeRestoreCmd)
}
