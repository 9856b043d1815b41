// Package model defines the record types flowing through the
// reconciliation pipeline.
//
// Upstream payloads are schemaless JSON objects produced by the
// scraper. The pipeline never validates payload schemas; it pulls out
// the handful of fields it routes and merges on, and round-trips
// everything else untouched. Record and Action are therefore thin map
// wrappers with typed accessors rather than full structs.
package model
