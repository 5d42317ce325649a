// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations compose table-level repos from internal/data/repos and own
// the coordinator scope for invariant-critical writes. Every slot write is a
// compare-and-set on the expected status, so a lost race surfaces as
// invalid_state whether or not the store runs real transactions. Under a
// pass-through scope, writes made before a failure are undone by compensating
// writes since the scope itself cannot roll them back.
package aggregates
