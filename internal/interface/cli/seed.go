package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	sqliterepo "github.com/YoshitsuguKoike/deequery/internal/infrastructure/persistence/sqlite"
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed [path]",
		Short: "Create the sample ecommerce database",
		Long: `Write the sample ecommerce data set (customers, products, orders) to a
new SQLite file. Without a path the configured database is created.

Examples:
  deequery seed
  deequery seed data/demo.sqlite --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.cfg.DBPath()
			if len(args) == 1 {
				path = args[0]
			}

			summary, err := sqliterepo.SeedSampleDatabase(cmd.Context(), path, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d customers, %d products, %d orders (revenue %.2f)\n",
				summary.Path, summary.Customers, summary.Products, summary.Orders, summary.Revenue)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing database file")
	return cmd
}
