package ecu

import (
	"context"
	"time"

	"ecusim/vehicle"
	"ecusim/x/timex"
)

// ignitionPoll is how often a gated task re-checks the ignition.
const ignitionPoll = 20 * time.Millisecond

// waitIgnition sleeps in ignitionPoll steps until ok accepts the
// ignition level.
func waitIgnition(ctx context.Context, clock timex.Clock, car *vehicle.Shared, ok func(vehicle.Ignition) bool) error {
	for !ok(ignition(car)) {
		if err := clock.SleepUntil(ctx, clock.Now().Add(ignitionPoll)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func ignition(car *vehicle.Shared) vehicle.Ignition {
	var ign vehicle.Ignition
	car.Lock(func(s *vehicle.State) { ign = s.Ignition() })
	return ign
}

func isOn(i vehicle.Ignition) bool { return i == vehicle.On }
