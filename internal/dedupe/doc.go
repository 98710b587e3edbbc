// Package dedupe remembers which durable ID a client request key produced,
// so a retried request reuses the earlier result instead of minting a second
// entity. Entries expire after a TTL and the oldest entry is evicted once the
// cache is full.
package dedupe
