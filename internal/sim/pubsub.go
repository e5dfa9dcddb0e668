package sim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PubsubHandler serves the /pubsub WebSocket endpoint. Each connection may
// carry several named subscriptions; every live subscription gets its own
// emitter goroutine that ends on unsubscribe or connection close.
type PubsubHandler struct {
	logger        *zap.Logger
	state         *State
	upgrader      websocket.Upgrader
	eventInterval time.Duration
}

type pubsubRequest struct {
	Operation       string           `json:"Operation"`
	Type            string           `json:"Type"`
	DebounceMs      int              `json:"DebounceMs"`
	EventName       string           `json:"EventName"`
	ReturnProperty  *string          `json:"ReturnProperty"`
	EventConditions []eventCondition `json:"EventConditions"`
}

type eventCondition struct {
	Property   string `json:"Property"`
	Inequality string `json:"Inequality"`
	Value      any    `json:"Value"`
}

type pubsubConn struct {
	conn   *websocket.Conn
	sendMu sync.Mutex
	logger *zap.Logger

	mu            sync.Mutex
	subscriptions map[string]chan struct{}
}

// NewPubsubHandler executes the newPubsubHandler function.
func NewPubsubHandler(state *State, eventInterval time.Duration, logger *zap.Logger) *PubsubHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eventInterval <= 0 {
		eventInterval = 250 * time.Millisecond
	}
	return &PubsubHandler{
		logger:        logger,
		state:         state,
		eventInterval: eventInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle executes the handle method.
func (h *PubsubHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("pubsub upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	pc := &pubsubConn{
		conn:          conn,
		logger:        h.logger,
		subscriptions: make(map[string]chan struct{}),
	}
	defer pc.stopAll()

	h.logger.Debug("pubsub connection opened", zap.String("remote", r.RemoteAddr))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug("pubsub connection closed", zap.Error(err))
			return
		}
		var req pubsubRequest
		if err := json.Unmarshal(data, &req); err != nil {
			pc.sendJSON(map[string]any{"error": "invalid json"})
			continue
		}
		switch req.Operation {
		case "subscribe":
			h.handleSubscribe(pc, req)
		case "unsubscribe":
			pc.stop(req.EventName)
		default:
			pc.sendJSON(map[string]any{"error": fmt.Sprintf("unknown operation %q", req.Operation)})
		}
	}
}

func (h *PubsubHandler) handleSubscribe(pc *pubsubConn, req pubsubRequest) {
	if req.EventName == "" {
		pc.sendJSON(map[string]any{"error": "EventName is required"})
		return
	}
	generator, ok := h.generatorFor(req.Type)
	if !ok {
		pc.sendJSON(map[string]any{"error": fmt.Sprintf("unknown event type %q", req.Type)})
		return
	}

	stop := make(chan struct{})
	pc.mu.Lock()
	if _, exists := pc.subscriptions[req.EventName]; exists {
		pc.mu.Unlock()
		pc.sendJSON(map[string]any{"error": fmt.Sprintf("event name %q already registered", req.EventName)})
		return
	}
	pc.subscriptions[req.EventName] = stop
	pc.mu.Unlock()

	pc.sendJSON(map[string]any{
		"eventName": req.EventName,
		"message":   "Registered to event type " + req.Type,
	})

	h.logger.Debug("pubsub subscription registered",
		zap.String("event_name", req.EventName),
		zap.String("event_type", req.Type),
		zap.Int("debounce_ms", req.DebounceMs),
	)

	go h.emit(pc, req, generator, stop)
}

// emit delivers synthetic events until stop closes. The effective period is
// the larger of the handler interval and the requested debounce.
func (h *PubsubHandler) emit(pc *pubsubConn, req pubsubRequest, generator func(time.Time) map[string]any, stop chan struct{}) {
	interval := h.eventInterval
	if debounce := time.Duration(req.DebounceMs) * time.Millisecond; debounce > interval {
		interval = debounce
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			payload := generator(now)
			if !matchesConditions(payload, req.EventConditions) {
				continue
			}
			body := applyReturnProperty(payload, req.ReturnProperty)
			if err := pc.sendJSON(map[string]any{
				"eventName": req.EventName,
				"message":   body,
			}); err != nil {
				return
			}
		}
	}
}

func (h *PubsubHandler) generatorFor(eventType string) (func(time.Time) map[string]any, bool) {
	switch eventType {
	case "IMU":
		return h.state.imuReading, true
	case "BatteryCharge":
		return func(time.Time) map[string]any { return h.state.Battery() }, true
	case "SlamStatus":
		return func(time.Time) map[string]any {
			return map[string]any{"slamStatus": h.state.SlamStatus()}
		}, true
	case "ActuatorPosition":
		return func(time.Time) map[string]any { return h.state.actuatorReading() }, true
	case "TouchSensor":
		positions := []string{"Chin", "HeadLeft", "HeadRight", "HeadBack", "HeadFront", "Scruff"}
		var n int
		return func(time.Time) map[string]any {
			position := positions[n%len(positions)]
			n++
			return map[string]any{
				"sensorPosition": position,
				"isContacted":    n%2 == 0,
			}
		}, true
	case "TimeOfFlight":
		return func(time.Time) map[string]any {
			return map[string]any{
				"sensorId":         "toffc",
				"distanceInMeters": 0.45,
				"status":           0,
			}
		}, true
	case "HazardNotification":
		states := []string{
			"bumpSensorsHazardState",
			"criticalInternalError",
			"driveStopped",
			"timeOfFlightSensorsHazardState",
			"excessiveSpeedHazard",
		}
		var n int
		return func(time.Time) map[string]any {
			state := states[n%len(states)]
			n++
			return map[string]any{
				"Hazard":                         state,
				"bumpSensorsHazardState":         []any{},
				"driveStopped":                   []any{},
				"timeOfFlightSensorsHazardState": []any{},
				"excessiveSpeedHazard":           []any{},
			}
		}, true
	default:
		return nil, false
	}
}

func (pc *pubsubConn) sendJSON(payload any) error {
	pc.sendMu.Lock()
	defer pc.sendMu.Unlock()
	return pc.conn.WriteJSON(payload)
}

func (pc *pubsubConn) stop(eventName string) {
	pc.mu.Lock()
	stop, ok := pc.subscriptions[eventName]
	if ok {
		delete(pc.subscriptions, eventName)
	}
	pc.mu.Unlock()
	if ok {
		close(stop)
	}
}

func (pc *pubsubConn) stopAll() {
	pc.mu.Lock()
	stops := make([]chan struct{}, 0, len(pc.subscriptions))
	for name, stop := range pc.subscriptions {
		stops = append(stops, stop)
		delete(pc.subscriptions, name)
	}
	pc.mu.Unlock()
	for _, stop := range stops {
		close(stop)
	}
}

// matchesConditions applies the subscription filter to one payload. An
// unresolvable property or an unknown operator fails the filter rather than
// passing bad data through.
func matchesConditions(payload map[string]any, conditions []eventCondition) bool {
	for _, cond := range conditions {
		value, ok := lookupProperty(payload, cond.Property)
		if !ok {
			return false
		}
		if !compare(value, cond.Inequality, cond.Value) {
			return false
		}
	}
	return true
}

func compare(got any, inequality string, want any) bool {
	switch inequality {
	case "==":
		return stringify(got) == stringify(want)
	case "!=":
		return stringify(got) != stringify(want)
	case "exists":
		return true
	case "empty":
		return stringify(got) == ""
	}

	gotNum, gotOK := toFloat(got)
	wantNum, wantOK := toFloat(want)
	if !gotOK || !wantOK {
		return false
	}
	switch inequality {
	case ">":
		return gotNum > wantNum
	case "<":
		return gotNum < wantNum
	case "=>":
		return gotNum >= wantNum
	case "delta":
		return gotNum != wantNum
	default:
		return false
	}
}

// applyReturnProperty narrows the payload to one property when requested,
// keeping the property name as the single key of the delivered object.
func applyReturnProperty(payload map[string]any, property *string) map[string]any {
	if property == nil || *property == "" {
		return payload
	}
	value, ok := lookupProperty(payload, *property)
	if !ok {
		value = nil
	}
	leaf := *property
	if i := strings.LastIndex(leaf, "."); i >= 0 {
		leaf = leaf[i+1:]
	}
	return map[string]any{leaf: value}
}

// lookupProperty resolves a dot-notation path through nested objects.
func lookupProperty(payload map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = payload
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
