// Package txn implements the transaction coordinator used by aggregate writes.
//
// The coordinator hands out a Scope per unit of work. When the backing store
// supports multi-document transactions the scope is an AtomicScope wrapping a
// real transaction; otherwise it is a NoopScope whose Commit and Abort do
// nothing.
//
// Limitation: aborting a NoopScope does not undo writes that were already
// issued under it. Callers that need all-or-nothing semantics without store
// transactions must order their writes so a partial prefix is still safe, as
// the swap aggregate does with compare-and-set slot writes.
package txn
