package sim

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/misty-community/misty-go/pkg/misty/events"
)

func newPubsubURL(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	state := NewState()
	pubsub := NewPubsubHandler(state, 10*time.Millisecond, nil)
	server := httptest.NewServer(NewRouter(state, pubsub, nil))
	t.Cleanup(server.Close)
	return "ws://" + strings.TrimPrefix(server.URL, "http://") + "/pubsub"
}

func TestSubscribeAndReceive(t *testing.T) {
	stream := events.NewStream(events.Config{
		URL:       newPubsubURL(t),
		EventType: "IMU",
		EventName: "imu-test",
	}, nil)

	if err := stream.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer stream.Unsubscribe()

	msg, err := stream.Receive(testCtx(t))
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	if msg["eventName"] != "imu-test" {
		t.Fatalf("eventName=%v, want imu-test", msg["eventName"])
	}
	body, ok := msg["message"].(map[string]any)
	if !ok {
		t.Fatalf("message=%v, want an object", msg["message"])
	}
	if _, ok := body["yaw"]; !ok {
		t.Fatalf("imu payload missing yaw: %v", body)
	}
}

func TestUnknownEventTypeRejected(t *testing.T) {
	stream := events.NewStream(events.Config{
		URL:       newPubsubURL(t),
		EventType: "NoSuchSensor",
		EventName: "bad",
	}, nil)

	err := stream.Subscribe(testCtx(t))
	var rejected *events.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Subscribe error=%v, want *events.RejectedError", err)
	}
	if stream.State() != events.StateUnsubscribed {
		t.Fatalf("state=%q after rejection, want unsubscribed", stream.State())
	}
}

func TestTouchConditionFiltering(t *testing.T) {
	stream := events.NewStream(events.Config{
		URL:       newPubsubURL(t),
		EventType: "TouchSensor",
		EventName: "chin-only",
		Conditions: []events.Condition{
			{Property: "sensorPosition", Inequality: "==", Value: "Chin"},
		},
	}, nil)

	if err := stream.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer stream.Unsubscribe()

	for i := 0; i < 3; i++ {
		msg, err := stream.Receive(testCtx(t))
		if err != nil {
			t.Fatalf("Receive error: %v", err)
		}
		body, ok := msg["message"].(map[string]any)
		if !ok {
			t.Fatalf("message=%v, want an object", msg["message"])
		}
		if body["sensorPosition"] != "Chin" {
			t.Fatalf("sensorPosition=%v, want only Chin events", body["sensorPosition"])
		}
	}
}

func TestHazardConditionFiltering(t *testing.T) {
	stream := events.NewStream(events.Config{
		URL:       newPubsubURL(t),
		EventType: "HazardNotification",
		EventName: "drive-stopped-only",
		Conditions: []events.Condition{
			{Property: "Hazard", Inequality: "==", Value: "driveStopped"},
		},
	}, nil)

	if err := stream.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer stream.Unsubscribe()

	for i := 0; i < 2; i++ {
		msg, err := stream.Receive(testCtx(t))
		if err != nil {
			t.Fatalf("Receive error: %v", err)
		}
		body, ok := msg["message"].(map[string]any)
		if !ok {
			t.Fatalf("message=%v, want an object", msg["message"])
		}
		if body["Hazard"] != "driveStopped" {
			t.Fatalf("Hazard=%v, want only driveStopped events", body["Hazard"])
		}
	}
}

func TestReturnPropertyNarrowing(t *testing.T) {
	stream := events.NewStream(events.Config{
		URL:            newPubsubURL(t),
		EventType:      "IMU",
		EventName:      "yaw-only",
		ReturnProperty: "yaw",
	}, nil)

	if err := stream.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer stream.Unsubscribe()

	msg, err := stream.Receive(testCtx(t))
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	body, ok := msg["message"].(map[string]any)
	if !ok {
		t.Fatalf("message=%v, want an object", msg["message"])
	}
	if len(body) != 1 {
		t.Fatalf("payload=%v, want only the requested property", body)
	}
	if _, ok := body["yaw"]; !ok {
		t.Fatalf("payload=%v, want yaw", body)
	}
}

func TestDuplicateEventNameRejected(t *testing.T) {
	url := newPubsubURL(t)

	first := events.NewStream(events.Config{URL: url, EventType: "IMU", EventName: "dup"}, nil)
	if err := first.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("first Subscribe error: %v", err)
	}
	defer first.Unsubscribe()

	// Same connection reuse is what the handler guards; separate client
	// connections may reuse names freely.
	second := events.NewStream(events.Config{URL: url, EventType: "IMU", EventName: "dup"}, nil)
	if err := second.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("second Subscribe on a fresh connection error: %v", err)
	}
	second.Unsubscribe()
}

func TestConditionMatching(t *testing.T) {
	payload := map[string]any{
		"sensorPosition": "Chin",
		"reading":        map[string]any{"value": 4.5},
		"note":           "",
	}

	tests := []struct {
		name string
		cond eventCondition
		want bool
	}{
		{"equal match", eventCondition{"sensorPosition", "==", "Chin"}, true},
		{"equal miss", eventCondition{"sensorPosition", "==", "Scruff"}, false},
		{"not equal", eventCondition{"sensorPosition", "!=", "Scruff"}, true},
		{"nested greater", eventCondition{"reading.value", ">", 4.0}, true},
		{"nested less miss", eventCondition{"reading.value", "<", 4.0}, false},
		{"greater or equal", eventCondition{"reading.value", "=>", 4.5}, true},
		{"exists", eventCondition{"sensorPosition", "exists", nil}, true},
		{"empty", eventCondition{"note", "empty", nil}, true},
		{"missing property", eventCondition{"nope", "==", "x"}, false},
		{"unknown operator", eventCondition{"sensorPosition", "~=", "Chin"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := matchesConditions(payload, []eventCondition{tc.cond})
			if got != tc.want {
				t.Fatalf("matchesConditions=%t, want %t", got, tc.want)
			}
		})
	}
}
