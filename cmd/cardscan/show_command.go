package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show one scan job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				kind := statusInfo
				switch job.Status {
				case queue.StatusDone:
					kind = statusOK
				case queue.StatusFailed:
					kind = statusWarn
				}

				fmt.Fprintln(out, renderStatusLine("Job", statusInfo, fmt.Sprintf("%d", job.ID), colorize))
				fmt.Fprintln(out, renderStatusLine("Status", kind, string(job.Status), colorize))
				fmt.Fprintln(out, renderStatusLine("Scan", statusInfo, jobTitle(job), colorize))
				fmt.Fprintln(out, renderStatusLine("Condition", statusInfo, job.Condition, colorize))
				fmt.Fprintln(out, renderStatusLine("Foil", statusInfo, yesNo(job.Foil), colorize))
				if job.SetCodeHint != "" {
					fmt.Fprintln(out, renderStatusLine("Set hint", statusInfo, job.SetCodeHint, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo, fmt.Sprintf("%d", job.Attempts), colorize))
				if job.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, job.LastError, colorize))
				}
				if job.GuessedName != "" {
					fmt.Fprintln(out, renderStatusLine("Guessed name", statusOK,
						fmt.Sprintf("%s (%.0f%%)", job.GuessedName, job.NameConfidence), colorize))
				}
				if job.CollectorNumber != "" {
					fmt.Fprintln(out, renderStatusLine("Collector", statusInfo, job.CollectorNumber, colorize))
				}
				if job.ChosenSet != "" {
					fmt.Fprintln(out, renderStatusLine("Printing", statusOK,
						fmt.Sprintf("%s #%s (%s)", job.ChosenSet, job.ChosenCollector, job.ChosenSetName), colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Created", statusInfo,
					job.CreatedAt.Local().Format(time.RFC3339), colorize))
				if job.FinishedAt != nil {
					fmt.Fprintln(out, renderStatusLine("Finished", statusInfo,
						job.FinishedAt.Local().Format(time.RFC3339), colorize))
				}
				return nil
			})
		},
	}
}
