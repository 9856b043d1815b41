// Package harness runs end-to-end pipeline scenarios for tests.
//
// A scenario is a YAML file describing one or more consecutive runs,
// each with its own input batch. The harness executes the runs against
// a temp repository with a deterministic clock and snapshots the final
// file tree, so cross-run behaviors (incremental merge, placeholder
// resolution, deferred event linking) can be asserted against golden
// files.
package harness
