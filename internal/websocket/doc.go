// Package websocket implements the real-time sync gateway using the actor pattern.
//
// The Registry owns all connection state in a single goroutine fed by a command
// channel (no mutexes). Per-connection write goroutines send typed envelopes,
// drive the application-level heartbeat, and handle slow clients gracefully.
package websocket
