// Package importer implements the generic bulk-import pipeline: row
// validation against a reference-data snapshot, batched ingestion with a
// configurable duplicate strategy, and the import session ledger.
//
// The pipeline is a sequence of immutable step outputs:
//
//	parsed rows -> confirmed mapping -> ValidationSummary -> IngestResult -> closed session
//
// No step mutates a prior step's result; re-running an import creates a new
// session. The package has no HTTP dependencies and can be driven by any
// frontend.
package importer
