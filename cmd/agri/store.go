package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/app"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the local store and its snapshots",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "InitStore", func(ctx context.Context, a *app.App) error {
			status, err := a.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Store ready at %s (schema v%d)\n", status.Path, status.SchemaVersion)
			return nil
		})
	},
}

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "View store state, record counts and last snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "StoreStatus", func(ctx context.Context, a *app.App) error {
			status, err := a.Status(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Path:     %s\n", status.Path)
			fmt.Printf("State:    %s\n", status.State)
			fmt.Printf("Schema:   v%d (latest v%d)\n", status.SchemaVersion, status.LatestVersion)
			if status.SnapshotVersion == 0 {
				fmt.Println("Snapshot: none")
			} else {
				fmt.Printf("Snapshot: %d (%s)\n", status.SnapshotVersion,
					time.Unix(status.SnapshotVersion, 0).Format("2006-01-02 15:04:05"))
			}
			fmt.Println()
			for _, c := range agri.Collections {
				fmt.Printf("%-10s %d\n", c, status.Counts[c])
			}
			return nil
		})
	},
}

var storeSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Encrypt the store and upload it to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Snapshot", func(ctx context.Context, a *app.App) error {
			version, err := a.Snapshot(ctx)
			if err != nil {
				return fmt.Errorf("snapshot failed: %w", err)
			}
			fmt.Printf("Snapshot %d uploaded\n", version)
			return nil
		})
	},
}

var storeRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local store with the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		return withApp(cmd, "Restore", func(ctx context.Context, a *app.App) error {
			version, err := a.Restore(ctx, passphrase)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Printf("Restored snapshot %d\n", version)
			return nil
		})
	},
}

func init() {
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeSnapshotCmd)
	storeCmd.AddCommand(storeRestoreCmd)
}
