// Package store provides durable storage for the legislative file
// tree.
//
// The tree is the only shared mutable resource in the system and the
// design assumes one pipeline run at a time. Every write is safe to
// redo: bill merges recompute from persisted state, placeholders and
// error records are written only when absent, and index and tracking
// files are full overwrites. A crashed run leaves state that the next
// run repairs by re-applying the same idempotent writes.
package store
