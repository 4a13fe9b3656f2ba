package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/inventory"
	"cardscan/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue and inventory summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				inv, err := inventory.NewStore(store.DB())
				if err != nil {
					return err
				}
				copies, err := inv.TotalCopies(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, store.Path(), colorize))
				for _, status := range queue.AllStatuses() {
					kind := statusOK
					if status == queue.StatusFailed && stats[status] > 0 {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(string(status), kind,
						fmt.Sprintf("%d", stats[status]), colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Inventory copies", statusInfo,
					fmt.Sprintf("%d", copies), colorize))
				return nil
			})
		},
	}
}
