package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/app"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Manage the logistics fleet",
}

var fleetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vehicles with their last telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListFleet", func(ctx context.Context, a *app.App) error {
			fleet, err := a.Records().Fleet(ctx)
			if err != nil {
				return err
			}
			if len(fleet) == 0 {
				fmt.Println("No vehicles.")
				return nil
			}

			for _, v := range fleet {
				cargo := ""
				if v.CargoTemp != nil {
					cargo = fmt.Sprintf("  %.1f°C", *v.CargoTemp)
				}
				fmt.Printf("%-12s %-20s %-11s %3dt  fuel:%3.0f%%  engine:%3.0f%%%s  %s\n",
					v.ID, v.DriverName, v.Status, v.AvailableCapacity, v.FuelLevel, v.EngineHealth, cargo,
					strings.Join(v.Alerts(), ","))
			}
			return nil
		})
	},
}

var fleetEnrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a vehicle",
	RunE: func(cmd *cobra.Command, args []string) error {
		driver, _ := cmd.Flags().GetString("driver")
		capacity, _ := cmd.Flags().GetInt("capacity")
		refrigerated, _ := cmd.Flags().GetBool("refrigerated")

		return withApp(cmd, "EnrollVehicle", func(ctx context.Context, a *app.App) error {
			v, err := a.Service().EnrollVehicle(ctx, agri.EnrollRequest{
				DriverName:   driver,
				Capacity:     capacity,
				Refrigerated: refrigerated,
			})
			if err != nil {
				return err
			}
			a.MarkDirty()
			fmt.Printf("Enrolled %s (%s, %dt)\n", v.ID, v.DriverName, v.AvailableCapacity)
			return nil
		})
	},
}

var fleetWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream beacon telemetry and save the last readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")

		return withApp(cmd, "WatchFleet", func(ctx context.Context, a *app.App) error {
			return a.WatchFleet(ctx, duration, func(e agri.TelemetryEvent) {
				cargo := ""
				if e.CargoTemp != nil {
					cargo = fmt.Sprintf("  %.1f°C", *e.CargoTemp)
				}
				fmt.Printf("%s  %-12s %8.4f,%8.4f  fuel:%5.1f%%  engine:%5.1f%%%s  %s\n",
					e.At.Format("15:04:05"), e.VehicleID, e.Lat, e.Lng, e.FuelLevel, e.EngineHealth, cargo,
					strings.Join(e.Alerts, ","))
			})
		})
	},
}

var fleetAdviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Get refuelling and maintenance advice for the fleet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "AdviseFleet", func(ctx context.Context, a *app.App) error {
			text, remote, err := a.AdviseFleet(ctx)
			if err != nil {
				return err
			}
			if !remote {
				fmt.Println("(advisor unavailable, local analysis)")
			}
			fmt.Println(text)
			return nil
		})
	},
}

func init() {
	fleetCmd.AddCommand(fleetListCmd)
	fleetCmd.AddCommand(fleetEnrollCmd)
	fleetCmd.AddCommand(fleetWatchCmd)
	fleetCmd.AddCommand(fleetAdviseCmd)

	fleetEnrollCmd.Flags().String("driver", "", "Driver name")
	fleetEnrollCmd.Flags().Int("capacity", 0, "Available capacity in tons")
	fleetEnrollCmd.Flags().Bool("refrigerated", false, "Vehicle has a cold-chain hold")

	fleetWatchCmd.Flags().Duration("duration", 30*time.Second, "How long to watch")
}
