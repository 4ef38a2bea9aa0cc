package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/role-task-api/internal/config"
	"github.com/yukikurage/role-task-api/internal/database"
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Role-based task management API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration, installs the process logger and connects to
// the database. Every subcommand starts here.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	gin.SetMode(cfg.GinMode)
	slog.SetDefault(newLogger(cfg.GinMode))

	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(mode string) *slog.Logger {
	if mode == gin.ReleaseMode {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
