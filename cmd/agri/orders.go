package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/app"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Manage buyer reservations",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListOrders", func(ctx context.Context, a *app.App) error {
			orders, err := a.Records().Orders(ctx)
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Println("No orders.")
				return nil
			}

			for _, o := range orders {
				fmt.Printf("%s  %s  %-14s %6.1ft  %12d XAF  %-12s %s\n",
					o.Date, o.ID, o.AssetID, o.Quantity, o.TotalPaid, o.Status, o.BuyerName)
			}
			return nil
		})
	},
}

var ordersReserveCmd = &cobra.Command{
	Use:   "reserve ASSET",
	Short: "Prepay a reservation on a lot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buyer, _ := cmd.Flags().GetString("buyer")
		quantity, _ := cmd.Flags().GetFloat64("quantity")

		return withApp(cmd, "Reserve", func(ctx context.Context, a *app.App) error {
			res, err := a.Service().Reserve(ctx, agri.ReserveRequest{
				AssetID:   args[0],
				BuyerName: buyer,
				Quantity:  quantity,
			})
			if err != nil {
				return fmt.Errorf("reservation failed: %w", err)
			}
			a.MarkDirty()

			fmt.Printf("%s  %s  %.1ft of %s\n", res.Order.ID, res.Order.BuyerName, res.Order.Quantity, res.Order.AssetID)
			fmt.Printf("  total    %12d XAF\n", res.Total)
			fmt.Printf("  discount %12d XAF\n", res.Discount)
			fmt.Printf("  paid     %12d XAF\n", res.Order.TotalPaid)
			return nil
		})
	},
}

func init() {
	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersReserveCmd)

	ordersReserveCmd.Flags().String("buyer", "", "Buyer name")
	ordersReserveCmd.Flags().Float64("quantity", 0, "Tons to reserve (default: whole estimated yield)")
}
