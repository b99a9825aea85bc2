package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/app"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage harvest and livestock lots",
}

var assetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListAssets", func(ctx context.Context, a *app.App) error {
			assets, err := a.Records().Assets(ctx)
			if err != nil {
				return err
			}
			if len(assets) == 0 {
				fmt.Println("No assets.")
				return nil
			}

			for _, as := range assets {
				offer := ""
				if as.Reservable() {
					offer = fmt.Sprintf("  maturity:%d%%", *as.Maturity)
					if as.EstimatedYield != nil && as.PricePerTon != nil {
						offer += fmt.Sprintf("  %.1ft @ %d XAF/t", *as.EstimatedYield, *as.PricePerTon)
					}
				}
				fmt.Printf("%-14s %-8s %-7s %s%s\n", as.ID, as.Type, as.Status, as.Location, offer)
			}
			return nil
		})
	},
}

var assetsAddCmd = &cobra.Command{
	Use:   "add ID",
	Short: "Register a lot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		assetType, _ := flags.GetString("type")
		status, _ := flags.GetString("status")
		location, _ := flags.GetString("location")
		owner, _ := flags.GetString("owner")
		area, _ := flags.GetString("area")

		asset := agri.Asset{
			ID:       args[0],
			Type:     agri.AssetType(strings.ToUpper(assetType)),
			Status:   agri.AssetStatus(strings.ToUpper(status)),
			Location: location,
			Owner:    owner,
			Area:     area,
		}
		if flags.Changed("count") {
			n, _ := flags.GetInt("count")
			asset.Count = &n
		}
		if flags.Changed("maturity") {
			m, _ := flags.GetInt("maturity")
			asset.Maturity = &m
		}
		if flags.Changed("yield") {
			y, _ := flags.GetFloat64("yield")
			asset.EstimatedYield = &y
		}
		if flags.Changed("price") {
			p, _ := flags.GetInt64("price")
			asset.PricePerTon = &p
		}

		return withApp(cmd, "RegisterAsset", func(ctx context.Context, a *app.App) error {
			if err := a.Service().RegisterAsset(ctx, asset); err != nil {
				return err
			}
			a.MarkDirty()
			fmt.Printf("Registered %s\n", asset.ID)
			return nil
		})
	},
}

func init() {
	assetsCmd.AddCommand(assetsListCmd)
	assetsCmd.AddCommand(assetsAddCmd)

	f := assetsAddCmd.Flags()
	f.String("type", string(agri.AssetManioc), "Lot type (MANIOC, BANANE, BOVIN, VOLAILLE)")
	f.String("status", string(agri.AssetHealthy), "Health status (SAIN, ALERTE, STABLE)")
	f.String("location", "", "Location of the lot")
	f.String("owner", "", "Owning farmer or cooperative")
	f.String("area", "", "Cultivated area, e.g. \"5 ha\"")
	f.Int("count", 0, "Head count for livestock")
	f.Int("maturity", 0, "Maturity percent; makes the lot reservable")
	f.Float64("yield", 0, "Estimated yield in tons")
	f.Int64("price", 0, "Price per ton in XAF")
}
