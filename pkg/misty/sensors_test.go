package misty

import (
	"errors"
	"testing"

	"github.com/misty-community/misty-go/pkg/misty/events"
)

func TestRegisterTouchSensorConditions(t *testing.T) {
	tests := []struct {
		name      string
		positions []string
		want      []events.Condition
	}{
		{
			name:      "all sensors",
			positions: nil,
			want:      nil,
		},
		{
			name:      "single sensor",
			positions: []string{"Chin"},
			want: []events.Condition{
				{Property: "sensorPosition", Inequality: "==", Value: "Chin"},
			},
		},
		{
			name:      "subset excludes the rest",
			positions: []string{"HeadLeft", "HeadRight"},
			want: []events.Condition{
				{Property: "sensorPosition", Inequality: "!=", Value: "Chin"},
				{Property: "sensorPosition", Inequality: "!=", Value: "HeadBack"},
				{Property: "sensorPosition", Inequality: "!=", Value: "HeadFront"},
				{Property: "sensorPosition", Inequality: "!=", Value: "Scruff"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			robot := NewRobot("192.168.1.96")
			stream, err := robot.RegisterTouchSensor("touch", tt.positions)
			if err != nil {
				t.Fatalf("RegisterTouchSensor error: %v", err)
			}
			cfg := stream.Config()
			if cfg.EventType != "TouchSensor" {
				t.Fatalf("event type=%q, want TouchSensor", cfg.EventType)
			}
			if len(cfg.Conditions) != len(tt.want) {
				t.Fatalf("conditions=%v, want %v", cfg.Conditions, tt.want)
			}
			for i := range tt.want {
				if cfg.Conditions[i] != tt.want[i] {
					t.Fatalf("condition[%d]=%v, want %v", i, cfg.Conditions[i], tt.want[i])
				}
			}
		})
	}
}

func TestRegisterTouchSensorInvalidPosition(t *testing.T) {
	robot := NewRobot("192.168.1.96")
	_, err := robot.RegisterTouchSensor("touch", []string{"Elbow"})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error=%v, want *ValidationError", err)
	}
	if _, ok := robot.Event("touch"); ok {
		t.Fatal("invalid registration still landed in the registry")
	}
}

func TestRegisterHazardNotificationConditions(t *testing.T) {
	robot := NewRobot("192.168.1.96")
	stream, err := robot.RegisterHazardNotification("hazards", []string{"driveStopped"})
	if err != nil {
		t.Fatalf("RegisterHazardNotification error: %v", err)
	}
	cfg := stream.Config()
	want := events.Condition{Property: "Hazard", Inequality: "==", Value: "driveStopped"}
	if len(cfg.Conditions) != 1 || cfg.Conditions[0] != want {
		t.Fatalf("conditions=%v, want [%v]", cfg.Conditions, want)
	}

	if _, err := robot.RegisterHazardNotification("bad", []string{"meteorStrike"}); err == nil {
		t.Fatal("unknown hazard type accepted, want error")
	}
}

func TestRegisterIMUEventType(t *testing.T) {
	robot := NewRobot("192.168.1.96")
	stream, err := robot.RegisterIMU("imu", WithDebounce(100))
	if err != nil {
		t.Fatalf("RegisterIMU error: %v", err)
	}
	cfg := stream.Config()
	if cfg.EventType != "IMU" || cfg.DebounceMs != 100 {
		t.Fatalf("cfg=%+v, want IMU with debounce 100", cfg)
	}
}

func TestRegisterSlamStatusEventType(t *testing.T) {
	robot := NewRobot("192.168.1.96")
	stream, err := robot.RegisterSlamStatus("slam")
	if err != nil {
		t.Fatalf("RegisterSlamStatus error: %v", err)
	}
	if got := stream.Config().EventType; got != "SlamStatus" {
		t.Fatalf("event type=%q, want SlamStatus", got)
	}
}
