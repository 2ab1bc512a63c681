// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling and plain SQL with idempotent,
// advisory-lock guarded migrations. Repositories implement the domain
// interfaces: UserRepository, EventRepository, InboxRepository.
package database
