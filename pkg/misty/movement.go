package misty

import (
	"context"
	"time"
)

// Units selects how head position values are interpreted.
type Units string

const (
	UnitsDegrees  Units = "degrees"
	UnitsRadians  Units = "radians"
	UnitsPosition Units = "position"
)

// Arm names one of the robot's arms.
type Arm string

const (
	ArmLeft  Arm = "left"
	ArmRight Arm = "right"
)

// headRange is the open interval a head axis accepts for one unit system.
type headRange struct {
	min, max float64
}

var headRanges = map[Units]struct{ pitch, roll, yaw headRange }{
	UnitsDegrees:  {pitch: headRange{-40, 26}, roll: headRange{-40, 40}, yaw: headRange{-81, 81}},
	UnitsRadians:  {pitch: headRange{-0.1662, 0.6094}, roll: headRange{-0.75, 0.75}, yaw: headRange{-1.57, 1.57}},
	UnitsPosition: {pitch: headRange{-5, 5}, roll: headRange{-5, 5}, yaw: headRange{-5, 5}},
}

const (
	armPositionMin = -29
	armPositionMax = 90
)

// Drive starts driving at the given linear and angular velocities, each a
// percentage of maximum in [-100, 100]. The robot keeps driving until told
// otherwise.
func (r *Robot) Drive(ctx context.Context, linear float64, angular float64) error {
	if err := validatePercent("linear velocity", linear); err != nil {
		return err
	}
	if err := validatePercent("angular velocity", angular); err != nil {
		return err
	}
	_, err := r.rest.Post(ctx, "drive", map[string]any{
		"LinearVelocity":  linear,
		"AngularVelocity": angular,
	})
	return err
}

// DriveTime drives at the given velocities for a fixed duration, then stops.
func (r *Robot) DriveTime(ctx context.Context, linear float64, angular float64, duration time.Duration) error {
	if err := validatePercent("linear velocity", linear); err != nil {
		return err
	}
	if err := validatePercent("angular velocity", angular); err != nil {
		return err
	}
	if duration < 0 {
		return validationErrorf("duration", "must not be negative, got %v", duration)
	}
	_, err := r.rest.Post(ctx, "drive/time", map[string]any{
		"LinearVelocity":  linear,
		"AngularVelocity": angular,
		"TimeMS":          duration.Milliseconds(),
	})
	return err
}

// DriveTrack drives the left and right treads independently, each a
// percentage of maximum in [-100, 100].
func (r *Robot) DriveTrack(ctx context.Context, left float64, right float64) error {
	if err := validatePercent("left track speed", left); err != nil {
		return err
	}
	if err := validatePercent("right track speed", right); err != nil {
		return err
	}
	_, err := r.rest.Post(ctx, "drive/track", map[string]any{
		"LeftTrackSpeed":  left,
		"RightTrackSpeed": right,
	})
	return err
}

// Stop stops the robot's drive motors.
func (r *Robot) Stop(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "drive/stop", nil)
	return err
}

// Halt stops every motor at once: drive, head, and arms.
func (r *Robot) Halt(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "halt", nil)
	return err
}

// HeadMove describes a head movement. Exactly one of Velocity (percent of
// maximum) and Duration must be set. An empty Units means degrees.
type HeadMove struct {
	Pitch    float64
	Roll     float64
	Yaw      float64
	Velocity float64
	Duration time.Duration
	Units    Units
}

// MoveHead moves the head to the given pitch/roll/yaw position. Ranges
// depend on the unit system: in degrees pitch spans (-40, 26) up to down,
// roll (-40, 40) left to right, yaw (-81, 81) right to left; radians and
// the generic position scale cover the same physical travel.
func (r *Robot) MoveHead(ctx context.Context, move HeadMove) error {
	if move.Units == "" {
		move.Units = UnitsDegrees
	}
	ranges, ok := headRanges[move.Units]
	if !ok {
		return validationErrorf("units", "must be degrees, radians or position, got %q", move.Units)
	}
	if (move.Velocity != 0) == (move.Duration != 0) {
		return validationErrorf("head move", "exactly one of velocity and duration must be set")
	}
	if err := validateOpenRange("pitch", move.Pitch, ranges.pitch); err != nil {
		return err
	}
	if err := validateOpenRange("roll", move.Roll, ranges.roll); err != nil {
		return err
	}
	if err := validateOpenRange("yaw", move.Yaw, ranges.yaw); err != nil {
		return err
	}

	params := map[string]any{
		"Pitch": move.Pitch,
		"Roll":  move.Roll,
		"Yaw":   move.Yaw,
		"Units": string(move.Units),
	}
	if move.Velocity != 0 {
		params["Velocity"] = move.Velocity
	} else {
		params["Duration"] = move.Duration.Seconds()
	}
	_, err := r.rest.Post(ctx, "head", params)
	return err
}

// MoveArm moves one arm to position degrees in [-29, 90] (up to down) at
// velocity percent in (0, 100].
func (r *Robot) MoveArm(ctx context.Context, arm Arm, position float64, velocity float64) error {
	if arm != ArmLeft && arm != ArmRight {
		return validationErrorf("arm", "must be left or right, got %q", arm)
	}
	if err := validateArmPosition(string(arm)+" arm position", position); err != nil {
		return err
	}
	if err := validateArmVelocity(string(arm)+" arm velocity", velocity); err != nil {
		return err
	}
	_, err := r.rest.Post(ctx, "arms", map[string]any{
		"Arm":      string(arm),
		"Position": position,
		"Velocity": velocity,
	})
	return err
}

// MoveArms moves both arms in one request.
func (r *Robot) MoveArms(ctx context.Context, leftPosition, leftVelocity, rightPosition, rightVelocity float64) error {
	if err := validateArmPosition("left arm position", leftPosition); err != nil {
		return err
	}
	if err := validateArmVelocity("left arm velocity", leftVelocity); err != nil {
		return err
	}
	if err := validateArmPosition("right arm position", rightPosition); err != nil {
		return err
	}
	if err := validateArmVelocity("right arm velocity", rightVelocity); err != nil {
		return err
	}
	_, err := r.rest.Post(ctx, "arms/set", map[string]any{
		"LeftArmPosition":  leftPosition,
		"LeftArmVelocity":  leftVelocity,
		"RightArmPosition": rightPosition,
		"RightArmVelocity": rightVelocity,
	})
	return err
}

func validatePercent(field string, value float64) error {
	if value < -100 || value > 100 {
		return validationErrorf(field, "must be between -100 and 100, got %v", value)
	}
	return nil
}

func validateOpenRange(field string, value float64, r headRange) error {
	if value <= r.min || value >= r.max {
		return validationErrorf(field, "must be between %v and %v (exclusive), got %v", r.min, r.max, value)
	}
	return nil
}

func validateArmPosition(field string, value float64) error {
	if value < armPositionMin || value > armPositionMax {
		return validationErrorf(field, "must be between %d and %d, got %v", armPositionMin, armPositionMax, value)
	}
	return nil
}

func validateArmVelocity(field string, value float64) error {
	if value <= 0 || value > 100 {
		return validationErrorf(field, "must be between 0 (exclusive) and 100, got %v", value)
	}
	return nil
}
