package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deequery/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deequery/internal/app"
	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/infrastructure/observability"
)

// batchFlags holds the flags for the batch command
type batchFlags struct {
	file        string // questions, one per line; "-" reads stdin
	concurrency int
	maxAttempts int
	format      string
	metricsOut  string // Prometheus text file written after the run
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch --file <questions>",
		Short: "Answer many questions concurrently",
		Long: `Answer every question in a file, one per line.

Blank lines and lines starting with # are ignored. Each question runs in its
own session; a failing question never affects the others. The command exits
with status 1 if any question failed, 2 if any was exhausted.

Examples:
  deequery batch --file questions.txt
  deequery batch --file questions.txt --concurrency 8 --metrics-out metrics.prom
  cat questions.txt | deequery batch --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := readQuestions(root.fsOrOS(), cmd.InOrStdin(), flags.file)
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), cmd.OutOrStdout(), root, questions, flags)
		},
	}

	cmd.Flags().StringVar(&flags.file, "file", "", "File with one question per line (- for stdin)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "c", 4, "Questions answered at the same time")
	cmd.Flags().IntVar(&flags.maxAttempts, "max-attempts", 0, "Attempt ceiling per question (default from config)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", "Output format: text, json, csv, markdown")
	cmd.Flags().StringVar(&flags.metricsOut, "metrics-out", "", "Write Prometheus metrics to this text file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readQuestions loads the non-blank, non-comment lines of a question file
func readQuestions(fs afero.Fs, stdin io.Reader, path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = afero.ReadFile(fs, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	var questions []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in %s", path)
	}
	return questions, nil
}

func runBatch(ctx context.Context, w io.Writer, root *rootOptions, questions []string, flags *batchFlags) error {
	if flags.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	p, err := presenter.New(flags.format, presenter.Options{})
	if err != nil {
		return err
	}

	container, err := root.container(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	out, runErr := container.GetQueryUseCase().Batch(ctx, dto.BatchInput{
		Questions:   questions,
		Concurrency: flags.concurrency,
		MaxAttempts: flags.maxAttempts,
	})
	if out == nil {
		return runErr
	}

	if err := p.PresentBatch(w, out); err != nil {
		return fmt.Errorf("failed to render batch: %w", err)
	}
	if flags.metricsOut != "" {
		if err := observability.WriteTextfile(flags.metricsOut, container.GetRegistry()); err != nil {
			return err
		}
		app.GetLogger().Info("metrics written to %s", flags.metricsOut)
	}

	switch {
	case runErr != nil:
		return runErr
	case out.Failed > 0:
		return &ExitCodeError{Code: ExitError, Reason: fmt.Sprintf("%d of %d questions failed", out.Failed, len(out.Items))}
	case out.Exhausted > 0:
		return exhausted(fmt.Sprintf("%d of %d questions exhausted", out.Exhausted, len(out.Items)))
	}
	return nil
}
