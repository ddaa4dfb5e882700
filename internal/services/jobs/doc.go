// Package jobs holds the in-memory table of pending one-shot delivery jobs.
//
// Each job is a timer plus a payload-executing callback. The table is keyed
// by a caller-chosen id; re-adding an id replaces the previous entry, and a
// per-id version counter makes callbacks from replaced timers inert. Fired
// jobs run on their own goroutine so a slow delivery never delays another
// due job.
//
// The table is process-local and not persisted. Durable intent lives in the
// post store; the posting service rebuilds this table on startup.
package jobs
