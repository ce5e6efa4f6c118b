package cli

import (
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deequery/internal/adapter/presenter"
)

func newSchemaCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the tables and columns the generator sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := presenter.New(format, presenter.Options{})
			if err != nil {
				return err
			}
			container, err := root.container(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			catalog, err := container.GetQueryUseCase().DescribeSchema(cmd.Context())
			if err != nil {
				return err
			}
			return p.PresentSchema(cmd.OutOrStdout(), catalog)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, csv, markdown")
	return cmd
}
