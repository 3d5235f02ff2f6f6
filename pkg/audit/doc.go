// Package audit records one structured event per ESP write attempt.
//
// Events flow through a [Trail]: every event is logged via slog (error
// severity when the write aggregated errors, debug otherwise) and fanned
// out to any configured sinks. The shipped [Archiver] sink batches events
// into JSON Lines objects on S3-compatible storage, giving operators a
// durable record of every contact sync independent of log retention.
package audit
