// Package cli implements the ingest command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ingest/internal/config"
	"github.com/JonMunkholm/ingest/internal/core"
	_ "github.com/JonMunkholm/ingest/internal/core/entities" // Register all entities
	"github.com/JonMunkholm/ingest/internal/logging"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Daily batch ingestion: validate raw CSVs and publish clean and quarantine files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			_, err := config.LoadDotEnv(files...)
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load variables from this file instead of ./.env")
	cmd.AddCommand(runCmd(), serveCmd(), generateCmd(), entitiesCmd())
	return cmd
}

// loadConfig loads the environment configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingRequired) {
			return nil, core.NewFatalError(core.CodeMissingConfig, "", "config", err)
		}
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	return cfg, nil
}

// printError writes one coded line per distinct failure, then the technical detail.
func printError(w io.Writer, err error) {
	for _, msg := range core.MapErrors(err) {
		fmt.Fprintf(w, "error: %s (Code: %s). %s\n", msg.Message, msg.Code, msg.Action)
	}
	fmt.Fprintf(w, "detail: %v\n", err)
}

func entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List registered entities in run order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, schema := range core.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d fields\n", schema.Position, schema.Name, len(schema.Fields))
			}
			return nil
		},
	}
}
