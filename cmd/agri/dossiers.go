package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/app"
)

// dossierFile is the TOML layout accepted by "dossiers import":
//
//	[[dossier]]
//	id = "CR-2024-001"
//	farmer = "Coopérative de Ntoum"
//	...
//	  [[dossier.tranches]]
//	  id = "T1"
type dossierFile struct {
	Dossiers []agri.CreditDossier `toml:"dossier"`
}

var dossiersCmd = &cobra.Command{
	Use:   "dossiers",
	Short: "Manage credit dossiers and tranche disbursement",
}

var dossiersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credit dossiers and their tranches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListDossiers", func(ctx context.Context, a *app.App) error {
			dossiers, err := a.Records().Credits(ctx)
			if err != nil {
				return err
			}
			if len(dossiers) == 0 {
				fmt.Println("No dossiers.")
				return nil
			}

			for _, d := range dossiers {
				fmt.Printf("%s  %-30s  %12d XAF  %s  risk:%d\n", d.ID, d.Farmer, d.Amount, d.Category, d.RiskScore)
				for _, t := range d.Tranches {
					fmt.Printf("    %-4s %-8s %12d  %s\n", t.ID, t.Status, t.Amount, t.Label)
				}
			}
			return nil
		})
	},
}

var dossiersImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Open the credit dossiers described in a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var file dossierFile
		if _, err := toml.DecodeFile(args[0], &file); err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		return withApp(cmd, "OpenDossier", func(ctx context.Context, a *app.App) error {
			for _, d := range file.Dossiers {
				if err := a.Service().OpenDossier(ctx, d); err != nil {
					return err
				}
				a.MarkDirty()
				fmt.Printf("Opened %s (%d tranche(s))\n", d.ID, len(d.Tranches))
			}
			return nil
		})
	},
}

var dossiersReleaseCmd = &cobra.Command{
	Use:   "release DOSSIER TRANCHE",
	Short: "Mark a tranche's release condition as met",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ReleaseTranche", func(ctx context.Context, a *app.App) error {
			if err := a.Service().ReleaseTranche(ctx, args[0], args[1]); err != nil {
				return err
			}
			a.MarkDirty()
			fmt.Printf("Tranche %s of %s released\n", args[1], args[0])
			return nil
		})
	},
}

var dossiersDisburseCmd = &cobra.Command{
	Use:   "disburse DOSSIER TRANCHE",
	Short: "Pay out a released tranche",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Disburse", func(ctx context.Context, a *app.App) error {
			entry, err := a.Service().Disburse(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("disbursement failed: %w", err)
			}
			a.MarkDirty()

			fmt.Printf("%s  %s\n", entry.ID, entry.Description)
			fmt.Printf("  gross %12d XAF\n", entry.Gross)
			fmt.Printf("  fee   %12d XAF\n", entry.Fee)
			fmt.Printf("  net   %12d XAF\n", entry.Net)
			return nil
		})
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "View the disbursement ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListLedger", func(ctx context.Context, a *app.App) error {
			entries, err := a.Records().Ledger(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No ledger entries.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %s  %12d  %10d  %12d  %s\n", e.Date, e.ID, e.Gross, e.Fee, e.Net, e.Description)
			}
			return nil
		})
	},
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Summarize financing and sales",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Portfolio", func(ctx context.Context, a *app.App) error {
			p, err := a.Service().Portfolio(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Dossiers:  %d (%d XAF committed)\n", p.Dossiers, p.Committed)
			fmt.Printf("Disbursed: %d XAF (fees %d, net %d)\n", p.Disbursed, p.Fees, p.Net)
			fmt.Printf("Orders:    %d (%d XAF prepaid)\n", p.Orders, p.Prepaid)
			return nil
		})
	},
}

func init() {
	dossiersCmd.AddCommand(dossiersListCmd)
	dossiersCmd.AddCommand(dossiersImportCmd)
	dossiersCmd.AddCommand(dossiersReleaseCmd)
	dossiersCmd.AddCommand(dossiersDisburseCmd)

	ledgerCmd.AddCommand(ledgerListCmd)
}
