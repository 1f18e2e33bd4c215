package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"anima/internal/config"
	"anima/internal/stash"
)

var stashCmd = &cobra.Command{
	Use:   "stash",
	Short: "Simple key/value stash",
}

func openStash() (*stash.DB, error) {
	root, err := config.DefaultRoot()
	if err != nil {
		return nil, err
	}
	return stash.Open(root)
}

var stashGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a stashed value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStash()
		if err != nil {
			return err
		}
		defer kv.Close()
		value, ok, err := kv.Get(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no stash key %s", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var stashSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Stash a value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStash()
		if err != nil {
			return err
		}
		defer kv.Close()
		return kv.Set(args[0], args[1])
	},
}

var stashDeleteCmd = &cobra.Command{
	Use:   "delete [key]",
	Short: "Remove a stashed value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStash()
		if err != nil {
			return err
		}
		defer kv.Close()
		return kv.Delete(args[0])
	},
}

var stashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stash keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStash()
		if err != nil {
			return err
		}
		defer kv.Close()
		entries, err := kv.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Println(e.Key)
		}
		return nil
	},
}

func init() {
	stashCmd.AddCommand(stashGetCmd)
	stashCmd.AddCommand(stashSetCmd)
	stashCmd.AddCommand(stashDeleteCmd)
	stashCmd.AddCommand(stashListCmd)
}
