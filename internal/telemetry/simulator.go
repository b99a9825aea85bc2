// Package telemetry simulates the IoT beacons fitted to enrolled vehicles.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"agri-sentinel/internal/agri"
)

// DefaultInterval is the beacon period when none is configured.
const DefaultInterval = 5 * time.Second

// Simulator emits a reading per vehicle every interval. Each vehicle drifts
// independently: fuel burns down, the engine wears, refrigerated holds wander
// around their set point.
type Simulator struct {
	interval time.Duration
	seed     uint64
	clock    agri.Clock
}

// NewSimulator creates a simulator. The same seed replays the same readings.
func NewSimulator(interval time.Duration, seed uint64, clock agri.Clock) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Simulator{interval: interval, seed: seed, clock: clock}
}

// Stream runs one goroutine per vehicle until ctx is done, then returns nil.
// out is never closed; the caller owns it.
func (s *Simulator) Stream(ctx context.Context, vehicles []agri.FleetVehicle, out chan<- agri.TelemetryEvent) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, v := range vehicles {
		rng := rand.New(rand.NewPCG(s.seed, uint64(i)))
		g.Go(func() error {
			return s.beacon(ctx, v, rng, out)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (s *Simulator) beacon(ctx context.Context, v agri.FleetVehicle, rng *rand.Rand, out chan<- agri.TelemetryEvent) error {
	if v.ID == "" {
		return fmt.Errorf("%w: vehicle without id", agri.ErrInvalidRequest)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		v = step(v, rng)
		event := agri.TelemetryEvent{
			VehicleID:    v.ID,
			At:           s.clock.Now(),
			Lat:          v.CurrentLat,
			Lng:          v.CurrentLng,
			FuelLevel:    v.FuelLevel,
			EngineHealth: v.EngineHealth,
			Alerts:       v.Alerts(),
		}
		if v.CargoTemp != nil {
			temp := *v.CargoTemp
			event.CargoTemp = &temp
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- event:
		}
	}
}

// step advances one vehicle by one beacon period.
func step(v agri.FleetVehicle, rng *rand.Rand) agri.FleetVehicle {
	if v.Status == agri.VehicleInTransit {
		v.FuelLevel = max(0, v.FuelLevel-rng.Float64()*2)
		v.EngineHealth = max(0, v.EngineHealth-rng.Float64()*0.5)
	}
	v.CurrentLat += (rng.Float64() - 0.5) * 0.001
	v.CurrentLng += (rng.Float64() - 0.5) * 0.001

	if v.TemperatureControl && v.CargoTemp != nil {
		temp := *v.CargoTemp + (rng.Float64()-0.5)*0.6
		v.CargoTemp = &temp
	}
	return v
}

var _ agri.TelemetrySource = (*Simulator)(nil)
