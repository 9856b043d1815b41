// Package handlers routes incoming records to their entity handler and
// applies the per-entity persistence rules.
//
// Routing is by filename prefix: bill_, vote_event_, event_. Each
// handler validates its required fields, drops invalid records into
// the categorized error sink, and writes the entity into the file
// tree. Handlers are idempotent; rerunning one over already-persisted
// state produces the identical tree.
package handlers
