// Package server implements the HTTP surface using the Echo framework.
//
// Routes: auth (register/login/password reset), users, events, inbox,
// the websocket sync endpoint, and observability (health, metrics,
// version). Handlers are split by resource: handlers_auth.go,
// handlers_users.go, handlers_events.go, handlers_inbox.go,
// handlers_ws.go.
package server
