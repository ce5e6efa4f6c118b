package cli

import (
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deequery/internal/adapter/presenter"
)

func newShowCmd(root *rootOptions) *cobra.Command {
	flags := &askFlags{}

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show an archived session",
		Long: `Show an archived session with its result or clarification.

Examples:
  deequery show 01JA8Z3K4M5N6P7Q8R9S0T1V2W
  deequery show 01JA8Z3K4M5N6P7Q8R9S0T1V2W --show-diff --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := presenter.New(flags.format, presenter.Options{ShowDiff: flags.showDiff})
			if err != nil {
				return err
			}
			container, err := root.container(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			out, err := container.GetQueryUseCase().Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.PresentAnswer(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", "Output format: text, json, csv, markdown")
	cmd.Flags().BoolVar(&flags.showDiff, "show-diff", false, "Show the change between consecutive attempts")
	return cmd
}
