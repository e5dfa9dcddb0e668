package misty

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestFollowPathSerialization(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	path := []Waypoint{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}
	if err := robot.FollowPath(testCtx(t), path, FollowPathParams{}); err != nil {
		t.Fatalf("FollowPath error: %v", err)
	}
	call := rec.last(t)
	if call.Path != "drive/path" {
		t.Fatalf("path=%q, want drive/path", call.Path)
	}
	if call.Body["Path"] != "1:2,3:4,5:6" {
		t.Fatalf("Path=%v, want 1:2,3:4,5:6", call.Body["Path"])
	}
	if call.Body["Velocity"] != 0.5 || call.Body["FullSpinDuration"] != 15.0 {
		t.Fatalf("body=%v, want default velocity 0.5 and spin duration 15", call.Body)
	}
	if call.Body["WaypointAccuracy"] != 0.1 || call.Body["RotateThreshold"] != 10.0 {
		t.Fatalf("body=%v, want default accuracy 0.1 and threshold 10", call.Body)
	}
}

func TestFollowPathValidation(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	path := []Waypoint{{X: 0, Y: 0}}
	tests := []struct {
		name   string
		path   []Waypoint
		params FollowPathParams
	}{
		{name: "empty path", path: nil},
		{name: "velocity at upper bound", path: path, params: FollowPathParams{Velocity: 1}},
		{name: "velocity negative", path: path, params: FollowPathParams{Velocity: -0.2}},
		{name: "negative waypoint accuracy", path: path, params: FollowPathParams{WaypointAccuracy: -1}},
		{name: "rotate threshold too large", path: path, params: FollowPathParams{RotateThreshold: 361}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := robot.FollowPath(testCtx(t), tt.path, tt.params)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("FollowPath error=%v, want *ValidationError", err)
			}
		})
	}
	if rec.count() != 0 {
		t.Fatalf("%d requests reached the robot, want 0", rec.count())
	}
}

func TestDriveToLocationSerialization(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	if err := robot.DriveToLocation(testCtx(t), 12, 34); err != nil {
		t.Fatalf("DriveToLocation error: %v", err)
	}
	call := rec.last(t)
	if call.Path != "drive/coordinates" || call.Body["Destination"] != "12:34" {
		t.Fatalf("call=%v, want drive/coordinates with Destination=12:34", call)
	}
}

func TestSetSlamExposureValidation(t *testing.T) {
	robot := newTestRobot(t, (&apiRecorder{}).handler(t))

	if err := robot.SetSlamIrExposureAndGain(testCtx(t), 0.0001, 2); err == nil {
		t.Fatal("exposure below range accepted, want error")
	}
	if err := robot.SetSlamIrExposureAndGain(testCtx(t), 0.02, 4); err == nil {
		t.Fatal("ir gain above range accepted, want error")
	}
	if err := robot.SetSlamVisibleExposureAndGain(testCtx(t), 0.02, 9); err == nil {
		t.Fatal("visible gain above range accepted, want error")
	}
	if err := robot.SetSlamVisibleExposureAndGain(testCtx(t), 0.02, 8); err != nil {
		t.Fatalf("visible gain at bound rejected: %v", err)
	}
}

func TestUpdateHazardSettingsSerialization(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	update := HazardUpdate{
		DisableTimeOfFlights: true,
		BumpSensorsEnabled: []BumpSensorSetting{
			{SensorName: "Bump_FrontRight", Enabled: false},
		},
	}
	if err := robot.UpdateHazardSettings(testCtx(t), update); err != nil {
		t.Fatalf("UpdateHazardSettings error: %v", err)
	}
	call := rec.last(t)
	if call.Path != "hazard/updatebasesettings" {
		t.Fatalf("path=%q, want hazard/updatebasesettings", call.Path)
	}
	if call.Body["DisableTimeOfFlights"] != true {
		t.Fatalf("DisableTimeOfFlights=%v, want true", call.Body["DisableTimeOfFlights"])
	}
	sensors, ok := call.Body["BumpSensorsEnabled"].([]any)
	if !ok || len(sensors) != 1 {
		t.Fatalf("BumpSensorsEnabled=%v, want one entry", call.Body["BumpSensorsEnabled"])
	}
	entry := sensors[0].(map[string]any)
	if entry["sensorName"] != "Bump_FrontRight" || entry["enabled"] != false {
		t.Fatalf("entry=%v, want sensorName=Bump_FrontRight enabled=false", entry)
	}
	if _, ok := call.Body["TimeOfFlightThresholds"]; ok {
		t.Fatal("TimeOfFlightThresholds sent although empty")
	}
}

func TestGetMapDecoding(t *testing.T) {
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "slam/map" {
			t.Errorf("path=%q, want slam/map", r.URL.Path)
		}
		io.WriteString(w, `{"status":"Success","result":{"grid":[0,1,2,3],"height":2,"width":2,"isValid":true}}`)
	})

	m, err := robot.GetMap(testCtx(t))
	if err != nil {
		t.Fatalf("GetMap error: %v", err)
	}
	if m.Height != 2 || m.Width != 2 || !m.IsValid {
		t.Fatalf("map=%+v, want 2x2 valid grid", m)
	}
	if len(m.Grid) != 4 || m.Grid[2] != 2 {
		t.Fatalf("grid=%v, want [0 1 2 3]", m.Grid)
	}
}

func TestTakeFisheyePicture(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("Base64"); got != "true" {
			t.Errorf("Base64=%q, want true", got)
		}
		io.WriteString(w, `{"status":"Success","result":{"base64":"`+base64.StdEncoding.EncodeToString(png)+`"}}`)
	})

	data, err := robot.TakeFisheyePicture(testCtx(t))
	if err != nil {
		t.Fatalf("TakeFisheyePicture error: %v", err)
	}
	if string(data) != string(png) {
		t.Fatalf("image=%v, want decoded png bytes", data)
	}
}
