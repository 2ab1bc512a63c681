// Package redis provides the Redis client and the cross-instance sync
// bridge.
//
// The Bridge relays broadcast envelopes between instances over a single
// pub/sub channel. Every message carries the origin instance ID so an
// instance never re-delivers its own broadcasts. All commands pass
// through a metrics hook and a circuit breaker hook.
package redis
