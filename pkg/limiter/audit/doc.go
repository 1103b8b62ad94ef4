// Package audit records admission decisions for later inspection.
//
// The recorder is asynchronous: decisions are handed to a buffered
// channel and written by a background worker, so the admission path
// never blocks on storage. When the buffer is full events are dropped
// and counted; the audit trail is observability, not admission state,
// and its loss never affects a decision.
//
// Two storage backends are provided: an in-memory ring for tests and
// ephemeral deployments, and a SQLite store (WAL mode) for durable
// trails. Old rows are pruned on a cron schedule by the retention
// Scheduler.
package audit
