// Package aggregates owns the transaction boundaries for writes that must be
// all-or-nothing: swapping a topic's draft set, recording performance while
// marking a draft posted, committing a voice training run and deleting pillars.
//
// Aggregates compose table-level repos from internal/data/repos and map
// storage failures onto apperr codes.
package aggregates
