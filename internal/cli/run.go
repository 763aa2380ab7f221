package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/summary"
)

func runCmd() *cobra.Command {
	var (
		date     string
		entities []string
		noRaw    bool
		format   string
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Validate and publish one day of raw files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runDate, err := resolveDate(date)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(entities) == 0 {
				entities = cfg.Ingest.Entities
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Ingest.Timeout)
			defer cancel()

			d, err := buildDeps(ctx, cfg, entities, cfg.Ingest.UploadRaw && !noRaw)
			if err != nil {
				return err
			}
			defer d.Close()

			sum, runErr := d.runner.Run(ctx, runDate)
			if err := printSummary(cmd.OutOrStdout(), sum, format); err != nil {
				return err
			}
			return runErr
		},
	}

	c.Flags().StringVarP(&date, "date", "d", "", "Run date YYYY-MM-DD (default: today, UTC)")
	c.Flags().StringSliceVarP(&entities, "entity", "e", nil, "Entities to run (default: all, or INGEST_ENTITIES)")
	c.Flags().BoolVar(&noRaw, "no-raw", false, "Skip copying raw files to the object store")
	c.Flags().StringVar(&format, "format", "json", "Output format: json|text")
	return c
}

// resolveDate parses a YYYY-MM-DD flag; empty means today in UTC.
func resolveDate(s string) (core.Date, error) {
	if s == "" {
		return core.DateOf(time.Now().UTC()), nil
	}
	return core.ParseDate(s)
}

func printSummary(w io.Writer, sum summary.RunSummary, format string) error {
	switch format {
	case "json":
		data, err := sum.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "text":
		fmt.Fprintf(w, "run %s\n", sum.RunDate)
		for _, name := range sum.Names() {
			es := sum.Entities[name]
			fmt.Fprintf(w, "  %-12s total=%-6d valid=%-6d invalid=%-6d\n", name, es.Total, es.Valid, es.Invalid)
			fmt.Fprintf(w, "  %-12s validated:  %s\n", "", es.ValidatedLocator)
			fmt.Fprintf(w, "  %-12s quarantine: %s\n", "", es.QuarantineLocator)
		}
		total, valid, invalid := sum.Totals()
		_, err := fmt.Fprintf(w, "total=%d valid=%d invalid=%d\n", total, valid, invalid)
		return err
	default:
		return fmt.Errorf("unknown format %q (use json or text)", format)
	}
}
