package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State describes the lifecycle position of a Stream.
type State string

const (
	StateUnsubscribed State = "unsubscribed"
	StateSubscribed   State = "subscribed"
	StateClosed       State = "closed"
)

// Message is one decoded event payload. Its shape is defined by the robot
// per event type; the client performs no interpretation beyond JSON parsing.
type Message map[string]any

// Config carries the parameters of one event subscription. All fields are
// fixed at construction; the stream sends them verbatim in the subscribe
// handshake.
type Config struct {
	// URL is the pub/sub endpoint, e.g. ws://192.168.1.96/pubsub.
	URL string
	// EventType is the robot-defined event category, e.g. "IMU".
	EventType string
	// EventName identifies this subscription on the wire and in the
	// owning registry.
	EventName string
	// DebounceMs is the minimum spacing between delivered events.
	// Negative values are treated as zero.
	DebounceMs int
	// ReturnProperty optionally restricts the payload to a single field,
	// dot notation allowed (e.g. "MentalState.Affect.Valence").
	ReturnProperty string
	// Conditions filter delivered events; nil means no filtering.
	Conditions []Condition
}

// Stream is one named event subscription over its own WebSocket connection.
// A stream is single-use: once unsubscribed it cannot be reopened. One
// logical caller at a time; concurrent Receive calls on the same stream
// produce undefined interleaving.
type Stream struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	state   State
	dialing bool
}

type subscribeRequest struct {
	Operation       string      `json:"Operation"`
	Type            string      `json:"Type"`
	DebounceMs      int         `json:"DebounceMs"`
	EventName       string      `json:"EventName"`
	ReturnProperty  *string     `json:"ReturnProperty"`
	EventConditions []Condition `json:"EventConditions"`
}

type unsubscribeRequest struct {
	Operation string `json:"Operation"`
	EventName string `json:"EventName"`
}

// NewStream builds a stream in the unsubscribed state. No network traffic
// happens until Subscribe.
func NewStream(cfg Config, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DebounceMs < 0 {
		cfg.DebounceMs = 0
	}
	return &Stream{
		cfg:    cfg,
		logger: logger,
		state:  StateUnsubscribed,
	}
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EventName returns the caller-chosen subscription name.
func (s *Stream) EventName() string {
	return s.cfg.EventName
}

// Config returns a copy of the construction parameters.
func (s *Stream) Config() Config {
	cfg := s.cfg
	cfg.Conditions = append([]Condition(nil), s.cfg.Conditions...)
	return cfg
}

// subscribeMessage builds the wire form of the subscribe handshake.
// EventConditions mirrors cfg.Conditions in original order, or null when
// the filter list is empty; ReturnProperty is null when unset.
func (s *Stream) subscribeMessage() subscribeRequest {
	req := subscribeRequest{
		Operation:  "subscribe",
		Type:       s.cfg.EventType,
		DebounceMs: s.cfg.DebounceMs,
		EventName:  s.cfg.EventName,
	}
	if s.cfg.ReturnProperty != "" {
		prop := s.cfg.ReturnProperty
		req.ReturnProperty = &prop
	}
	if len(s.cfg.Conditions) > 0 {
		req.EventConditions = s.cfg.Conditions
	}
	return req
}

// Subscribe dials the pub/sub endpoint, sends the subscribe request and
// waits for exactly one response. A response carrying the acknowledgment
// marker moves the stream to the subscribed state. On rejection the
// connection is closed, a *RejectedError is returned and the stream stays
// unsubscribed; transport failures likewise leave it unsubscribed.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateSubscribed:
		s.mu.Unlock()
		return ErrAlreadySubscribed
	case StateClosed:
		s.mu.Unlock()
		return ErrNotSubscribed
	}
	if s.dialing {
		s.mu.Unlock()
		return ErrAlreadySubscribed
	}
	s.dialing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.dialing = false
		s.mu.Unlock()
	}()

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial pubsub %s: %w", s.cfg.URL, err)
	}

	if err := s.writeJSON(ctx, conn, s.subscribeMessage()); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send subscribe %q: %w", s.cfg.EventName, err)
	}

	stop := watchContext(ctx, conn)
	_, resp, err := conn.ReadMessage()
	stop()
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return fmt.Errorf("await subscribe ack %q: %w", s.cfg.EventName, err)
	}

	if !hasAckMarker(resp) {
		_ = conn.Close()
		return &RejectedError{EventName: s.cfg.EventName, Payload: resp}
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateSubscribed
	s.mu.Unlock()

	s.logger.Debug("event subscription registered",
		zap.String("event_name", s.cfg.EventName),
		zap.String("event_type", s.cfg.EventType),
		zap.Int("debounce_ms", s.cfg.DebounceMs),
	)
	return nil
}

// Receive blocks until one event message arrives and returns it decoded.
// Messages come back in the order the robot sent them. There is no internal
// timeout; a context deadline or cancellation bounds the wait if the
// caller arranges one, and an interrupted wait returns an error wrapping
// ctx.Err(). A dropped connection surfaces as a transport error.
func (s *Stream) Receive(ctx context.Context) (Message, error) {
	s.mu.Lock()
	conn := s.conn
	subscribed := s.state == StateSubscribed
	s.mu.Unlock()
	if !subscribed || conn == nil {
		return nil, ErrNotSubscribed
	}

	stop := watchContext(ctx, conn)
	_, data, err := conn.ReadMessage()
	stop()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("receive event %q: %w", s.cfg.EventName, err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode event %q: %w", s.cfg.EventName, err)
	}
	return msg, nil
}

// Unsubscribe sends the unsubscribe request and closes the connection
// whether or not the send succeeded. The stream ends up closed either way;
// a second call fails with ErrNotSubscribed instead of double-closing.
func (s *Stream) Unsubscribe() error {
	s.mu.Lock()
	conn := s.conn
	subscribed := s.state == StateSubscribed
	if subscribed {
		s.conn = nil
		s.state = StateClosed
	}
	s.mu.Unlock()
	if !subscribed || conn == nil {
		return ErrNotSubscribed
	}

	sendErr := s.writeJSON(context.Background(), conn, unsubscribeRequest{
		Operation: "unsubscribe",
		EventName: s.cfg.EventName,
	})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()

	s.logger.Debug("event subscription closed", zap.String("event_name", s.cfg.EventName))

	if sendErr != nil {
		return fmt.Errorf("send unsubscribe %q: %w", s.cfg.EventName, sendErr)
	}
	return nil
}

func (s *Stream) writeJSON(ctx context.Context, conn *websocket.Conn, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}
	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				_ = conn.SetWriteDeadline(time.Now())
			case <-stop:
			}
		}()
	}
	err := conn.WriteJSON(payload)
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return err
}

// watchContext arms the read deadline from ctx and interrupts a blocked
// read when ctx is cancelled, by forcing the deadline into the past. The
// returned stop function must be called once the read completes; the
// connection is unusable after an interrupted read.
func watchContext(ctx context.Context, conn *websocket.Conn) (stop func()) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
	done := ctx.Done()
	if done == nil {
		return func() {}
	}
	quit := make(chan struct{})
	go func() {
		select {
		case <-done:
			_ = conn.SetReadDeadline(time.Now())
		case <-quit:
		}
	}()
	return func() { close(quit) }
}

// hasAckMarker reports whether the handshake response carries the robot's
// registration acknowledgment: a JSON object with a "message" field.
func hasAckMarker(resp []byte) bool {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(resp, &payload); err != nil {
		return false
	}
	_, ok := payload["message"]
	return ok
}
