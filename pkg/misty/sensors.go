package misty

import (
	"github.com/misty-community/misty-go/pkg/misty/events"
)

// TouchSensorPositions are the capacitive sensor locations on the robot's
// head and chin.
var TouchSensorPositions = []string{
	"Chin", "HeadLeft", "HeadRight", "HeadBack", "HeadFront", "Scruff",
}

// HazardTypes are the hazard state categories the hazard system reports.
var HazardTypes = []string{
	"bumpSensorsHazardState",
	"criticalInternalError",
	"driveStopped",
	"timeOfFlightSensorsHazardState",
	"excessiveSpeedHazard",
}

// RegisterTouchSensor registers a TouchSensor subscription limited to the
// given sensor positions. With no positions, events from every sensor are
// delivered. A single position becomes an equality condition; several
// become exclusion conditions on the remaining sensors, matching how the
// robot's filter engine combines conditions.
func (r *Robot) RegisterTouchSensor(eventName string, positions []string, opts ...EventOption) (*events.Stream, error) {
	conditions, err := membershipConditions("sensorPosition", positions, TouchSensorPositions)
	if err != nil {
		return nil, err
	}
	if conditions != nil {
		opts = append(opts, WithConditions(conditions...))
	}
	return r.RegisterEvent("TouchSensor", eventName, opts...)
}

// RegisterHazardNotification registers a HazardNotification subscription
// limited to the given hazard types, or to all of them when none are named.
func (r *Robot) RegisterHazardNotification(eventName string, hazardTypes []string, opts ...EventOption) (*events.Stream, error) {
	conditions, err := membershipConditions("Hazard", hazardTypes, HazardTypes)
	if err != nil {
		return nil, err
	}
	if conditions != nil {
		opts = append(opts, WithConditions(conditions...))
	}
	return r.RegisterEvent("HazardNotification", eventName, opts...)
}

// RegisterIMU registers a subscription to the IMU stream: pitch, yaw and
// roll orientation angles plus the forces along the rotational and linear
// axes. The robot sends IMU events every five seconds unless a tighter
// debounce is requested.
func (r *Robot) RegisterIMU(eventName string, opts ...EventOption) (*events.Stream, error) {
	return r.RegisterEvent("IMU", eventName, opts...)
}

// RegisterSlamStatus registers a subscription to SLAM system status events
// (status bitmask, status list, run mode, sensor status).
func (r *Robot) RegisterSlamStatus(eventName string, opts ...EventOption) (*events.Stream, error) {
	return r.RegisterEvent("SlamStatus", eventName, opts...)
}

// RegisterBatteryCharge registers a subscription to battery charge events.
func (r *Robot) RegisterBatteryCharge(eventName string, opts ...EventOption) (*events.Stream, error) {
	return r.RegisterEvent("BatteryCharge", eventName, opts...)
}

// RegisterActuatorPosition registers a subscription to actuator position
// events for the head and arm motors.
func (r *Robot) RegisterActuatorPosition(eventName string, opts ...EventOption) (*events.Stream, error) {
	return r.RegisterEvent("ActuatorPosition", eventName, opts...)
}

// membershipConditions turns a wanted subset of allowed into filter
// conditions: nil for the full set, one equality for a single value, and
// inequalities excluding the unwanted values otherwise.
func membershipConditions(property string, wanted []string, allowed []string) ([]events.Condition, error) {
	if len(wanted) == 0 {
		return nil, nil
	}

	index := make(map[string]struct{}, len(allowed))
	for _, value := range allowed {
		index[value] = struct{}{}
	}
	for _, value := range wanted {
		if _, ok := index[value]; !ok {
			return nil, validationErrorf(property, "unknown value %q", value)
		}
	}

	if len(wanted) == 1 {
		return []events.Condition{
			{Property: property, Inequality: events.InequalityEqual, Value: wanted[0]},
		}, nil
	}

	keep := make(map[string]struct{}, len(wanted))
	for _, value := range wanted {
		keep[value] = struct{}{}
	}
	var conditions []events.Condition
	for _, value := range allowed {
		if _, ok := keep[value]; ok {
			continue
		}
		conditions = append(conditions, events.Condition{
			Property:   property,
			Inequality: events.InequalityNotEqual,
			Value:      value,
		})
	}
	return conditions, nil
}
