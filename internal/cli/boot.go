package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var bootMode string

var bootCmd = &cobra.Command{
	Use:   "boot [task...]",
	Short: "Compile and print the context document",
	Long:  "Assemble the bounded context from all memory documents. Any arguments are treated as the current task, used to surface related entities.",
	RunE:  runBoot,
}

func init() {
	bootCmd.Flags().StringVarP(&bootMode, "mode", "m", "full", "Boot mode: full or lite")
}

func runBoot(cmd *cobra.Command, args []string) error {
	eng, _, err := openEngine()
	if err != nil {
		return err
	}

	task := strings.Join(args, " ")
	text, err := eng.Boot(bootMode, task)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	fmt.Print(text)
	return nil
}
