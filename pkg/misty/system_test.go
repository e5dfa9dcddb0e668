package misty

import (
	"io"
	"net/http"
	"testing"
)

func TestGetBatteryLevelDecoding(t *testing.T) {
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "battery" {
			t.Errorf("path=%q, want battery", r.URL.Path)
		}
		io.WriteString(w, `{"status":"Success","result":{
			"chargePercent":0.83,"current":-0.42,"isCharging":false,
			"state":"Discharging","temperature":31.0,"voltage":8.1
		}}`)
	})

	battery, err := robot.GetBatteryLevel(testCtx(t))
	if err != nil {
		t.Fatalf("GetBatteryLevel error: %v", err)
	}
	if battery.ChargePercent != 0.83 || battery.State != "Discharging" || battery.IsCharging {
		t.Fatalf("battery=%+v, want 83%% discharging", battery)
	}
}

func TestGetDeviceInformationDecoding(t *testing.T) {
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"Success","result":{
			"ipAddress":"192.168.1.96","robotVersion":"1.23.2","serialNumber":"2020-aa-bb"
		}}`)
	})

	info, err := robot.GetDeviceInformation(testCtx(t))
	if err != nil {
		t.Fatalf("GetDeviceInformation error: %v", err)
	}
	if info.IPAddress != "192.168.1.96" || info.RobotVersion != "1.23.2" {
		t.Fatalf("info=%+v, want reported address and version", info)
	}
}

func TestSetDefaultVolume(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	if err := robot.SetDefaultVolume(testCtx(t), 45); err != nil {
		t.Fatalf("SetDefaultVolume error: %v", err)
	}
	call := rec.last(t)
	if call.Path != "audio/volume" || call.Body["Volume"] != 45.0 {
		t.Fatalf("call=%+v, want POST audio/volume Volume=45", call)
	}

	for _, volume := range []int{-1, 101} {
		if err := robot.SetDefaultVolume(testCtx(t), volume); err == nil {
			t.Fatalf("volume %d accepted, want error", volume)
		}
	}
	if rec.count() != 1 {
		t.Fatalf("%d api calls recorded, want only the valid one", rec.count())
	}
}

func TestLogLevel(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	if err := robot.SetLogLevel(testCtx(t), "Debug"); err != nil {
		t.Fatalf("SetLogLevel error: %v", err)
	}
	call := rec.last(t)
	if call.Path != "logs/level" || call.Body["LogLevel"] != "Debug" {
		t.Fatalf("call=%+v, want POST logs/level LogLevel=Debug", call)
	}

	if err := robot.SetLogLevel(testCtx(t), "Verbose"); err == nil {
		t.Fatal("unknown level accepted, want error")
	}
	if rec.count() != 1 {
		t.Fatalf("%d api calls recorded, want only the valid one", rec.count())
	}
}

func TestGetLogLevelDecoding(t *testing.T) {
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "logs/level" {
			t.Errorf("path=%q, want logs/level", r.URL.Path)
		}
		io.WriteString(w, `{"status":"Success","result":"Warn"}`)
	})

	level, err := robot.GetLogLevel(testCtx(t))
	if err != nil {
		t.Fatalf("GetLogLevel error: %v", err)
	}
	if level != "Warn" {
		t.Fatalf("level=%q, want Warn", level)
	}
}

func TestHelpQuery(t *testing.T) {
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("command"); got != "led/change" {
			t.Errorf("command=%q, want led/change", got)
		}
		io.WriteString(w, `{"status":"Success","result":"Changes the LED color."}`)
	})

	text, err := robot.Help(testCtx(t), "led/change")
	if err != nil {
		t.Fatalf("Help error: %v", err)
	}
	if text != `"Changes the LED color."` {
		t.Fatalf("help=%q, want raw result payload", text)
	}
}
