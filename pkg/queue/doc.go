// Package queue is the async side of contact reconciliation, built on
// River over Postgres.
//
// [Intents] is an insert-only client implementing the engine's
// IntentQueue: subscribe intents are persisted as jobs and the engine
// returns to its caller immediately. [Worker] runs the other half: it
// replays each intent through the engine's synchronous path, inheriting
// River's retry and backoff behavior, and optionally flushes the audit
// archive on a cron schedule.
//
// Intents for the same email enqueued within the uniqueness window
// collapse into one job, so a double-submitted signup form does not
// become two provider writes.
package queue
