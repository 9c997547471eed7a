// Package demo walks through the ownership scenarios: an exclusive owner
// adopting and building values, a base-typed owner holding a derived value,
// pass-by-transfer into a function, and one value shared by several owners.
//
// Every step runs in its own scope against a shared ledger, so a value that
// outlives its step shows up as a leak at the end of the run.
package demo
