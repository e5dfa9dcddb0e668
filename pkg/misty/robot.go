package misty

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/misty-community/misty-go/internal/rest"
	"github.com/misty-community/misty-go/pkg/misty/events"
)

// Robot is the root client object for one robot on the local network.
// All REST calls go through a shared transport; event subscriptions are
// tracked in a named registry so they can be looked up and torn down.
type Robot struct {
	ip     string
	rest   *rest.Client
	logger *zap.Logger

	mu      sync.Mutex
	streams map[string]*events.Stream
}

// Option configures a Robot.
type Option func(*Robot)

// WithLogger attaches a zap logger. Without it the robot logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Robot) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRobot builds a client for the robot at ip (host or host:port).
func NewRobot(ip string, opts ...Option) *Robot {
	r := &Robot{
		ip:      ip,
		logger:  zap.NewNop(),
		streams: make(map[string]*events.Stream),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.rest = rest.NewClient(ip, r.logger)
	return r
}

// IP returns the robot address this client was built with.
func (r *Robot) IP() string {
	return r.ip
}

// PubsubURL returns the WebSocket endpoint event streams connect to.
func (r *Robot) PubsubURL() string {
	return "ws://" + r.ip + "/pubsub"
}

// EventOption adjusts one event registration.
type EventOption func(*events.Config)

// WithDebounce sets the minimum spacing between delivered events. The
// robot's default is 250 ms.
func WithDebounce(ms int) EventOption {
	return func(cfg *events.Config) {
		cfg.DebounceMs = ms
	}
}

// WithReturnProperty restricts delivered payloads to a single field
// (dot notation allowed).
func WithReturnProperty(property string) EventOption {
	return func(cfg *events.Config) {
		cfg.ReturnProperty = property
	}
}

// WithConditions sets the filter conditions, replacing any previous ones.
func WithConditions(conditions ...events.Condition) EventOption {
	return func(cfg *events.Config) {
		cfg.Conditions = conditions
	}
}

// RegisterEvent creates a stream for eventType under the caller-chosen
// eventName and stores it in the registry. The stream is returned in the
// unsubscribed state; call Subscribe on it to open the connection.
//
// A name still held by a live subscription is not silently replaced: the
// caller must RemoveEvent (or Unsubscribe) first. Entries whose stream was
// never subscribed or has been closed are replaced in place.
func (r *Robot) RegisterEvent(eventType string, eventName string, opts ...EventOption) (*events.Stream, error) {
	cfg := events.Config{
		URL:        r.PubsubURL(),
		EventType:  eventType,
		EventName:  eventName,
		DebounceMs: 250,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.streams[eventName]; ok && existing.State() == events.StateSubscribed {
		return nil, fmt.Errorf("event %q already has a live subscription; remove it first", eventName)
	}
	stream := events.NewStream(cfg, r.logger)
	r.streams[eventName] = stream
	return stream, nil
}

// Event looks up a registered stream by name.
func (r *Robot) Event(eventName string) (*events.Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stream, ok := r.streams[eventName]
	return stream, ok
}

// EventNames returns the registered subscription names, sorted.
func (r *Robot) EventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.streams))
	for name := range r.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveEvent unsubscribes the named stream if it is live and drops it from
// the registry. Removing an unknown name is an error; removing a stream
// that was never subscribed just forgets it.
func (r *Robot) RemoveEvent(eventName string) error {
	r.mu.Lock()
	stream, ok := r.streams[eventName]
	if ok {
		delete(r.streams, eventName)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("event %q is not registered", eventName)
	}
	if stream.State() != events.StateSubscribed {
		return nil
	}
	return stream.Unsubscribe()
}

// Close unsubscribes every live stream and empties the registry. The first
// unsubscribe error is returned; teardown continues regardless.
func (r *Robot) Close() error {
	r.mu.Lock()
	streams := make([]*events.Stream, 0, len(r.streams))
	for _, stream := range r.streams {
		streams = append(streams, stream)
	}
	r.streams = make(map[string]*events.Stream)
	r.mu.Unlock()

	var firstErr error
	for _, stream := range streams {
		if stream.State() != events.StateSubscribed {
			continue
		}
		if err := stream.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
