package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List scan jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), limit, statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						fmt.Sprintf("%d", job.ID),
						jobTitle(job),
						string(job.Status),
						fmt.Sprintf("%d", job.Attempts),
						job.CreatedAt.Local().Format(time.RFC3339),
						jobResultSummary(job),
					})
				}
				table := renderTable(
					[]string{"ID", "Scan", "Status", "Attempts", "Created", "Result"},
					rows, 0, 3)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to show")
	return cmd
}

func jobTitle(job *queue.Job) string {
	if job.OriginalName != "" {
		return job.OriginalName
	}
	return job.FilePath
}

func jobResultSummary(job *queue.Job) string {
	switch job.Status {
	case queue.StatusDone:
		if job.GuessedName == "" {
			return ""
		}
		return fmt.Sprintf("%s (%s #%s)", job.GuessedName, strings.ToUpper(job.ChosenSet), job.ChosenCollector)
	case queue.StatusFailed:
		return job.LastError
	default:
		return ""
	}
}
