package events

import (
	"errors"
	"fmt"
)

// ErrNotSubscribed is returned by Receive and Unsubscribe when the stream
// holds no active subscription, and by Subscribe on a closed stream.
var ErrNotSubscribed = errors.New("events: no active subscription")

// ErrAlreadySubscribed is returned by Subscribe when the stream already
// holds a live connection. The legacy behavior was to silently replace the
// connection, which leaked it; callers that want to resubscribe must
// Unsubscribe first and build a new stream.
var ErrAlreadySubscribed = errors.New("events: already subscribed")

// RejectedError is returned by Subscribe when the robot answered the
// handshake without the acknowledgment marker. Payload carries the raw
// server response for diagnosis.
type RejectedError struct {
	EventName string
	Payload   []byte
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("events: subscription %q rejected by server: %s", e.EventName, e.Payload)
}
