// Package store groups the conversation history backends that implement
// memory.Store:
//   - store/memory: process-local, for tests and single-shot CLI runs
//   - store/redis: one list per session with an optional TTL
//   - store/postgres: a messages table over pgx
//   - store/sqlite: a messages table in a local file
//
// All backends return history oldest first and bound reads to the most recent
// messages.
package store
