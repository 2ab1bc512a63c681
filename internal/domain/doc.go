// Package domain contains the core business entities and the interfaces
// the application layer depends on. It has no dependencies on transport,
// persistence, or framework packages.
package domain
