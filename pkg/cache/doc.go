// Package cache provides a small generic TTL cache with in-memory and
// Redis backends behind one interface.
//
// It backs the cached list resolver (pkg/lists) and the ESP adapters'
// contact-data caching, so both concerns share one serialization
// convention (JSON) and one loader-deduplication mechanism
// ([GetOrLoad], built on singleflight).
//
// TTL semantics for Set:
//   - positive duration: entry expires after this duration
//   - zero: use the cache's configured default TTL
//   - negative: entry never expires
package cache
