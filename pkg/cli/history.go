package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/cli/config"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

const defaultHistoryLimit = 20

func cmdHistory() *cli.Command {
	var repoCfg config.Repository
	var limit int

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Number of broadcasts to show",
			Value:       defaultHistoryLimit,
			Destination: &limit,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "history",
		Usage:   "Show recent broadcasts from the send log",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if limit <= 0 {
				return goerr.New("limit must be positive", goerr.V("limit", limit))
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			records, err := repo.SendLog().List(ctx, limit)
			if err != nil {
				return goerr.Wrap(err, "failed to list send log")
			}

			printHistory(c.Root().Writer, records, time.Now())
			return nil
		},
	}
}

var (
	historyHeader  = color.New(color.Bold)
	historySuccess = color.New(color.FgGreen)
	historyFailure = color.New(color.FgRed, color.Bold)
	historyMuted   = color.New(color.FgHiBlack)
)

// printHistory writes one line per broadcast, newest first
func printHistory(w io.Writer, records []*model.BroadcastRecord, now time.Time) {
	if len(records) == 0 {
		_, _ = historyMuted.Fprintln(w, "no broadcasts yet")
		return
	}

	_, _ = historyHeader.Fprintf(w, "%-20s  %-10s  %-12s  %9s  %s\n", "STARTED", "BUTTON", "ACTOR", "SENT", "DURATION")
	for _, r := range records {
		started := humanize.RelTime(r.StartedAt, now, "ago", "from now")
		duration := r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond)

		_, _ = fmt.Fprintf(w, "%-20s  %-10s  %-12s  ", started, r.ActionValue, r.ActorUserID)

		sent := fmt.Sprintf("%d/%d", r.SuccessCount, r.TargetCount)
		if r.HasFailures() {
			_, _ = historyFailure.Fprintf(w, "%9s", sent)
		} else {
			_, _ = historySuccess.Fprintf(w, "%9s", sent)
		}

		_, _ = historyMuted.Fprintf(w, "  %s  %s\n", duration, r.ID)
	}
}
