// Package aggregates defines domain-facing aggregate contracts.
//
// A contract lists the request transitions an aggregate performs and the
// party allowed to drive each one. Contracts carry no persistence or
// transport details.
package aggregates
