package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/app"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage stored preferences",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListSettings", func(ctx context.Context, a *app.App) error {
			settings, err := a.Records().Settings(ctx)
			if err != nil {
				return err
			}
			if len(settings) == 0 {
				fmt.Println("No settings.")
				return nil
			}
			for _, s := range settings {
				fmt.Printf("%s = %s\n", s.Key, s.Value)
			}
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "SetSetting", func(ctx context.Context, a *app.App) error {
			if err := a.Records().PutSetting(ctx, agri.Setting{Key: args[0], Value: args[1]}); err != nil {
				return err
			}
			a.MarkDirty()
			return nil
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
