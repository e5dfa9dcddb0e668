// Package misty provides a client SDK for the Misty II robot's REST and
// WebSocket APIs.
//
// A Robot wraps the HTTP endpoints under http://<ip>/api/ (movement,
// navigation and SLAM, skill management, assets, system settings) and owns a
// registry of named event subscriptions delivered over the ws://<ip>/pubsub
// channel. Event streams themselves live in the events subpackage.
package misty
