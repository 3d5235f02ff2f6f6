// Package contacts is the contact reconciliation engine: it performs
// idempotent create-or-update writes against a pluggable ESP provider and
// reconciles desired list membership against existing membership.
//
// # Operations
//
// [Engine.Subscribe] is the entry point for opting a contact into
// newsletter communications. It narrows metadata to the subscribe-safe
// keys, delegates to Upsert, and on the async path hands the request to
// an [IntentQueue] instead of touching the provider at all.
//
// [Engine.Upsert] is the single funnel every contact write passes
// through: pre-write hooks, provider resolution, existing-state fetch,
// filter chains, list resolution, the provider call, and audit emission.
// Validation and resolution errors are aggregated across the whole batch
// (multiple bad list IDs produce multiple invalid_list entries), so a
// single bad ID never blocks the valid ones.
//
// [Engine.UpdateLists] replaces membership with a minimal add/remove
// delta and short-circuits to [ListsUnchanged] when there is nothing to
// do. [Engine.Delete] probes the optional delete capability.
//
// # Error surface
//
// Every failure carries a code (invalid_provider, invalid_list,
// not_supported, ...). In normal mode a failed upsert returns one
// reader-safe message produced by the provider's translation capability;
// with WithDebugErrors the full [*ErrorList] aggregate is returned for
// operators. No operation is retried here; retry policy belongs to the
// caller or the intent queue.
//
// # Concurrency
//
// Each call is self-contained and synchronous; the engine holds no state
// between calls and provides no locking across concurrent writers of the
// same email. Last-write-wins semantics are whatever the provider
// implements.
package contacts
