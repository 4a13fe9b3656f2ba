package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/inventory"
)

func newInventoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List ingested cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withInventory(func(cfg *config.Config, inv *inventory.Store) error {
				items, err := inv.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Inventory is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						fmt.Sprintf("%d", item.ID),
						item.CardName,
						item.SetName,
						item.Condition,
						yesNo(item.Foil),
						fmt.Sprintf("%d", item.Quantity),
						fmt.Sprintf("%.2f", item.PriceUSD),
						item.UpdatedAt.Local().Format(time.RFC3339),
					})
				}
				table := renderTable(
					[]string{"ID", "Card", "Set", "Cond", "Foil", "Qty", "Price", "Updated"},
					rows, 0, 5, 6)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of rows to show")
	return cmd
}
