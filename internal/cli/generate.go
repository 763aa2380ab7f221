package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ingest/internal/generate"
)

func generateCmd() *cobra.Command {
	var (
		date   string
		dir    string
		seed   uint64
		counts = generate.DailyCounts
	)

	c := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic day folder with deliberately dirty rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := resolveDate(date)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = os.Getenv("ECOMMERCE_DATA_DIR")
			}
			if dir == "" {
				dir = "/tmp/ecommerce_data"
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			paths, err := generate.New(seed, counts).WriteDay(dir, day)
			if err != nil {
				return err
			}

			entities := make([]string, 0, len(paths))
			for entity := range paths {
				entities = append(entities, entity)
			}
			sort.Strings(entities)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seed %d\n", seed)
			for _, entity := range entities {
				fmt.Fprintf(out, "%s\t%s\n", entity, paths[entity])
			}
			return nil
		},
	}

	c.Flags().StringVarP(&date, "date", "d", "", "Day to generate YYYY-MM-DD (default: today, UTC)")
	c.Flags().StringVar(&dir, "dir", "", "Output root (default: ECOMMERCE_DATA_DIR or /tmp/ecommerce_data)")
	c.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default: current time)")
	c.Flags().IntVar(&counts.Customers, "customers", counts.Customers, "Customers to generate")
	c.Flags().IntVar(&counts.Products, "products", counts.Products, "Products to generate")
	c.Flags().IntVar(&counts.Orders, "orders", counts.Orders, "Orders to generate (3 items and 1 payment each)")
	return c
}
