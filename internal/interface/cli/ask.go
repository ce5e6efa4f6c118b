package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deequery/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
)

// askFlags holds the flags for the ask command
type askFlags struct {
	maxAttempts int    // 0 uses the configured ceiling
	format      string // text, json, csv or markdown
	showDiff    bool   // show what changed between attempts
}

func newAskCmd(root *rootOptions) *cobra.Command {
	flags := &askFlags{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question with a generated SQL statement",
		Long: `Generate, validate and execute a statement answering the question.

Failed attempts are diagnosed and retried. When the attempt ceiling is reached
a clarification request is printed and the command exits with status 2.

Examples:
  deequery ask "How many customers are there?"
  deequery ask "Total revenue per country" --format markdown
  deequery ask "Top products by revenue" --max-attempts 5 --show-diff`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd.OutOrStdout(), root, strings.Join(args, " "), flags)
		},
	}

	cmd.Flags().IntVar(&flags.maxAttempts, "max-attempts", 0, "Attempt ceiling for this question (default from config)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", "Output format: text, json, csv, markdown")
	cmd.Flags().BoolVar(&flags.showDiff, "show-diff", false, "Show the change between consecutive attempts")

	return cmd
}

func runAsk(ctx context.Context, w io.Writer, root *rootOptions, question string, flags *askFlags) error {
	if flags.maxAttempts < 0 {
		return fmt.Errorf("--max-attempts must not be negative")
	}
	p, err := presenter.New(flags.format, presenter.Options{ShowDiff: flags.showDiff})
	if err != nil {
		return err
	}

	container, err := root.container(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	out, err := container.GetQueryUseCase().Ask(ctx, dto.AskInput{
		Question:    question,
		MaxAttempts: flags.maxAttempts,
	})
	if err != nil {
		return err
	}

	if err := p.PresentAnswer(w, out); err != nil {
		return fmt.Errorf("failed to render answer: %w", err)
	}
	if !out.Succeeded() {
		return exhausted(fmt.Sprintf("session %s exhausted after %d attempts", out.SessionID, out.Attempts))
	}
	return nil
}
