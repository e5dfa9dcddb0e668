// Package events implements the Misty pub/sub event subscription protocol.
//
// A Stream owns one WebSocket connection to the robot's /pubsub endpoint and
// walks it through the three-message lifecycle: a subscribe handshake, any
// number of inbound event messages, and an unsubscribe followed by close.
// There is no reconnection and no internal buffering; the robot is the sole
// source of truth for event ordering and delivery.
package events
