// Package lists models subscription lists and resolves public list IDs to
// the provider-native lists the active ESP understands.
//
// A List is addressed by two identifiers: the PublicID printed on signup
// forms and stored in subscriber-facing URLs, and the ProviderID the ESP
// uses internally (a Mailchimp audience ID, a Resend audience UUID, and so
// on). The reconciliation engine only ever sees PublicIDs from callers and
// hands ProviderIDs to the ESP adapter.
//
// Three resolver implementations are provided:
//
//   - Config: the YAML lists definition file, loaded once at startup.
//   - Store: a Postgres-backed catalog for deployments that manage lists
//     at runtime.
//   - Cached: wraps any Source with a TTL cache to keep hot resolution
//     off the database.
//
// All three satisfy the Source interface consumed by pkg/contacts.
package lists
