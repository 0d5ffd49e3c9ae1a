package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/calendo/core/cmd/api/commands"
)

// @title Calendo API
// @version 1.0
// @description Calendar to-do store

// @host localhost:8000
// @BasePath /

func main() {
	rootCmd := &cobra.Command{
		Use:           "calendo",
		Short:         "Calendo calendar to-do server and client",
		Long:          `Calendo keeps dated, prioritized to-do items. "serve" runs the REST store, "todo" drives the calendar client against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())
	rootCmd.AddCommand(commands.NewTodoCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
