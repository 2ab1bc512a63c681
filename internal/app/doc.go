// Package app provides the application service layer.
//
// Orchestrates use cases: account lifecycle, event scheduling, inbox
// management, and change broadcasts. Sits between HTTP handlers and
// domain repositories. Depends on domain interfaces, not concrete
// implementations.
package app
