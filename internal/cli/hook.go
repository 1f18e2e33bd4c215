package cli

import (
	"os"

	"github.com/spf13/cobra"

	"anima/internal/hooks"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle agent host hook events (JSON on stdin)",
}

var hookBootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Fetch compiled context for session start",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("boot", os.Stdin)
	},
}

var hookToolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Record a tool invocation",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("tool", os.Stdin)
	},
}

var hookPromptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Record a saved-prompt use",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("prompt", os.Stdin)
	},
}

var hookBeatCmd = &cobra.Command{
	Use:   "beat",
	Short: "Tick the heartbeat",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("beat", os.Stdin)
	},
}

func init() {
	hookCmd.AddCommand(hookBootCmd)
	hookCmd.AddCommand(hookToolCmd)
	hookCmd.AddCommand(hookPromptCmd)
	hookCmd.AddCommand(hookBeatCmd)
}
