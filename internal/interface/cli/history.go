package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deequery/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// historyFlags holds the flags for the history command
type historyFlags struct {
	limit  int
	status string
	since  time.Duration
	format string
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	flags := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived sessions, newest first",
		Long: `List archived sessions, newest first.

Requires an archive backend (archive: sqlite, local, s3 or redis).

Examples:
  deequery history --limit 5
  deequery history --status exhausted --since 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter(time.Now())
			if err != nil {
				return err
			}
			p, err := presenter.New(flags.format, presenter.Options{})
			if err != nil {
				return err
			}

			container, err := root.container(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			items, err := container.GetQueryUseCase().History(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return p.PresentHistory(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().IntVarP(&flags.limit, "limit", "n", repository.DefaultListLimit, "Maximum number of sessions")
	cmd.Flags().StringVar(&flags.status, "status", "", "Only sessions with this status: succeeded, exhausted")
	cmd.Flags().DurationVar(&flags.since, "since", 0, "Only sessions created within this duration, e.g. 24h")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", "Output format: text, json, csv, markdown")

	return cmd
}

func (f *historyFlags) filter(now time.Time) (repository.SessionFilter, error) {
	if f.limit < 1 {
		return repository.SessionFilter{}, fmt.Errorf("--limit must be at least 1")
	}
	filter := repository.SessionFilter{Limit: f.limit}
	if f.status != "" {
		st := session.Status(f.status)
		if !st.IsTerminal() {
			return repository.SessionFilter{}, fmt.Errorf("invalid --status %q: want succeeded or exhausted", f.status)
		}
		filter.Status = st
	}
	if f.since > 0 {
		filter.Since = now.Add(-f.since)
	}
	return filter, nil
}
