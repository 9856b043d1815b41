// Package pipeline orchestrates one full reconciliation run.
//
// Execution is single-threaded and batch-shaped: load, route and
// merge, persist, link archived events, reconcile placeholders, flush.
// The file tree is the only shared mutable resource and the design
// assumes one run at a time. Failures are per-record and never abort
// the batch; only an unreadable input folder or session mapping file
// is fatal. Every write is redoable, so an aborted run is recovered by
// rerunning it.
package pipeline
