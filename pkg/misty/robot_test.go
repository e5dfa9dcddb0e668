package misty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/misty-community/misty-go/pkg/misty/events"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTestRobot starts a server that acknowledges pub/sub subscriptions on
// /pubsub and serves apiHandler under /api/, and returns a Robot pointed at
// it. apiHandler may be nil for pubsub-only tests.
func newTestRobot(t *testing.T, apiHandler http.HandlerFunc) *Robot {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pubsub", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				return
			}
			if msg["Operation"] == "subscribe" {
				if err := conn.WriteJSON(map[string]any{"message": "Registered"}); err != nil {
					return
				}
			}
		}
	})
	if apiHandler != nil {
		mux.Handle("/api/", http.StripPrefix("/api/", apiHandler))
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewRobot(strings.TrimPrefix(server.URL, "http://"))
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRegisterEventDefaults(t *testing.T) {
	robot := NewRobot("192.168.1.96")

	stream, err := robot.RegisterEvent("IMU", "imu-1")
	if err != nil {
		t.Fatalf("RegisterEvent error: %v", err)
	}
	cfg := stream.Config()
	if cfg.URL != "ws://192.168.1.96/pubsub" {
		t.Fatalf("stream url=%q, want ws://192.168.1.96/pubsub", cfg.URL)
	}
	if cfg.DebounceMs != 250 {
		t.Fatalf("debounce=%d, want default 250", cfg.DebounceMs)
	}
	if cfg.Conditions != nil && len(cfg.Conditions) != 0 {
		t.Fatalf("conditions=%v, want none", cfg.Conditions)
	}

	got, ok := robot.Event("imu-1")
	if !ok || got != stream {
		t.Fatal("Event lookup did not return the registered stream")
	}
}

func TestRegisterEventOptions(t *testing.T) {
	robot := NewRobot("192.168.1.96")

	stream, err := robot.RegisterEvent("SelfState", "affect",
		WithDebounce(100),
		WithReturnProperty("MentalState.Affect.Valence"),
		WithConditions(events.Condition{Property: "p", Inequality: "exists", Value: ""}),
	)
	if err != nil {
		t.Fatalf("RegisterEvent error: %v", err)
	}
	cfg := stream.Config()
	if cfg.DebounceMs != 100 {
		t.Fatalf("debounce=%d, want 100", cfg.DebounceMs)
	}
	if cfg.ReturnProperty != "MentalState.Affect.Valence" {
		t.Fatalf("return property=%q, want dot path", cfg.ReturnProperty)
	}
	if len(cfg.Conditions) != 1 || cfg.Conditions[0].Inequality != "exists" {
		t.Fatalf("conditions=%v, want one exists condition", cfg.Conditions)
	}
}

func TestRegisterEventRefusesLiveName(t *testing.T) {
	robot := newTestRobot(t, nil)

	stream, err := robot.RegisterEvent("IMU", "imu")
	if err != nil {
		t.Fatalf("RegisterEvent error: %v", err)
	}
	if err := stream.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	if _, err := robot.RegisterEvent("IMU", "imu"); err == nil {
		t.Fatal("RegisterEvent over a live subscription succeeded, want error")
	}

	// An inert entry may be replaced.
	if err := robot.RemoveEvent("imu"); err != nil {
		t.Fatalf("RemoveEvent error: %v", err)
	}
	if _, err := robot.RegisterEvent("IMU", "imu"); err != nil {
		t.Fatalf("RegisterEvent after removal error: %v", err)
	}
}

func TestRegisterEventReplacesInertEntry(t *testing.T) {
	robot := NewRobot("192.168.1.96")

	first, err := robot.RegisterEvent("IMU", "imu")
	if err != nil {
		t.Fatalf("RegisterEvent error: %v", err)
	}
	second, err := robot.RegisterEvent("IMU", "imu")
	if err != nil {
		t.Fatalf("RegisterEvent over unsubscribed entry error: %v", err)
	}
	if first == second {
		t.Fatal("RegisterEvent returned the prior stream, want a fresh one")
	}
	got, _ := robot.Event("imu")
	if got != second {
		t.Fatal("registry still holds the prior stream")
	}
}

func TestRemoveEventUnsubscribes(t *testing.T) {
	robot := newTestRobot(t, nil)

	stream, err := robot.RegisterEvent("TouchSensor", "touch")
	if err != nil {
		t.Fatalf("RegisterEvent error: %v", err)
	}
	if err := stream.Subscribe(testCtx(t)); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	if err := robot.RemoveEvent("touch"); err != nil {
		t.Fatalf("RemoveEvent error: %v", err)
	}
	if got := stream.State(); got != events.StateClosed {
		t.Fatalf("state=%q after RemoveEvent, want %q", got, events.StateClosed)
	}
	if _, ok := robot.Event("touch"); ok {
		t.Fatal("stream still registered after RemoveEvent")
	}
	if err := robot.RemoveEvent("touch"); err == nil {
		t.Fatal("RemoveEvent of unknown name succeeded, want error")
	}
}

func TestCloseUnsubscribesEverything(t *testing.T) {
	robot := newTestRobot(t, nil)

	names := []string{"imu", "touch", "slam"}
	streams := make([]*events.Stream, 0, len(names))
	for _, name := range names {
		stream, err := robot.RegisterEvent("IMU", name)
		if err != nil {
			t.Fatalf("RegisterEvent(%q) error: %v", name, err)
		}
		if err := stream.Subscribe(testCtx(t)); err != nil {
			t.Fatalf("Subscribe(%q) error: %v", name, err)
		}
		streams = append(streams, stream)
	}

	if err := robot.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	for i, stream := range streams {
		if got := stream.State(); got != events.StateClosed {
			t.Fatalf("stream %q state=%q, want %q", names[i], got, events.StateClosed)
		}
	}
	if got := robot.EventNames(); len(got) != 0 {
		t.Fatalf("EventNames=%v after Close, want empty", got)
	}
}

func TestEventNamesSorted(t *testing.T) {
	robot := NewRobot("192.168.1.96")
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := robot.RegisterEvent("IMU", name); err != nil {
			t.Fatalf("RegisterEvent(%q) error: %v", name, err)
		}
	}
	got := robot.EventNames()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("EventNames=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EventNames=%v, want %v", got, want)
		}
	}
}
