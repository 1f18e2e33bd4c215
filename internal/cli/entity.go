package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"anima/internal/entity"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage the entity graph",
}

var entityType string

var entityAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Record a mention of an entity (merges on repeat)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		name := strings.Join(args, " ")
		e, err := eng.Entities.Add(name, entity.Type(entityType), nil, nil)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s): %d mentions, closeness %.2f\n", e.Name, e.Type, e.Mentions, e.Closeness)
		return nil
	},
}

var entityLinkCmd = &cobra.Command{
	Use:   "link [name] [relation]",
	Short: "Attach a relation to an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		return eng.Entities.Link(args[0], args[1])
	},
}

var entityRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Delete an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		return eng.Entities.Remove(args[0])
	},
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities by mention count",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		for _, e := range eng.Entities.List(entity.Type(entityType)) {
			fmt.Printf("%-24s %-8s %3d mentions  closeness %.2f\n", e.Name, e.Type, e.Mentions, e.Closeness)
		}
		return nil
	},
}

func init() {
	entityAddCmd.Flags().StringVarP(&entityType, "type", "t", "other", "Entity type: person, project, tool, concept, other")
	entityListCmd.Flags().StringVarP(&entityType, "type", "t", "", "Filter by type")

	entityCmd.AddCommand(entityAddCmd)
	entityCmd.AddCommand(entityLinkCmd)
	entityCmd.AddCommand(entityRemoveCmd)
	entityCmd.AddCommand(entityListCmd)
}
