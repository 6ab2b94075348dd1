package commands

import (
	"context"
	"fmt"

	"fernpost/internal/config"
	"fernpost/internal/database"
	"fernpost/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var groupDescription string

var createGroupCmd = &cobra.Command{
	Use:   "creategroup <slug> <title>",
	Short: "Create a group",
	Long: `Create a group that posts can be tagged with. Groups are administered
from the command line; there is no HTTP route for this.

Example:
  fernpost creategroup test_group "Test group"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateGroup(cmd.Context(), args[0], args[1])
	},
}

func init() {
	createGroupCmd.Flags().StringVar(&groupDescription, "description", "", "Optional group description")
	rootCmd.AddCommand(createGroupCmd)
}

func runCreateGroup(ctx context.Context, slug, title string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	group := &models.Group{
		ID:          uuid.New(),
		Title:       title,
		Slug:        slug,
		Description: groupDescription,
	}
	if err := db.CreateGroup(ctx, group); err != nil {
		return err
	}

	fmt.Printf("Created group %s (%s)\n", group.Slug, group.ID)
	return nil
}
