// Package storage is the durable post store.
//
// It owns the posts table: one row per post intent, created when a user
// confirms a composed post and mutated only through conditional status
// updates. Rows are never deleted; terminal rows remain for history listing.
package storage
