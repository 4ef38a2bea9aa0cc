package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/yukikurage/role-task-api/internal/database"
	"github.com/yukikurage/role-task-api/internal/repository"
	"github.com/yukikurage/role-task-api/internal/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		if err := database.Migrate(); err != nil {
			return err
		}
		slog.Info("Database migration completed")
		return nil
	},
}

var seedRolesCmd = &cobra.Command{
	Use:   "seed-roles",
	Short: "Insert the default roles if they are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}
		roles := services.NewRoleRegistry(repository.NewRoleRepository(database.GetDB()))
		if err := roles.EnsureDefaultRoles(cmd.Context()); err != nil {
			return err
		}
		slog.Info("Default roles ensured")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedRolesCmd)
}
