// Package syncer keeps the session cache and the remote store consistent.
//
// Every UpdateValue writes the cache first, then upserts the remote row. A
// failed upsert restores the previous cache entry unless a newer write for the
// same key has already replaced it. Writes carry a per-key sequence number so
// late completions never clobber newer state.
//
// Reads merge the cache and the remote row through a single SyncPolicy.
package syncer
