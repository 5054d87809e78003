// Package ledger is the settlement engine: it validates expense splits,
// derives ledger entries, folds pending entries into balances and turns
// those balances into payment plans.
//
// Every function here is a pure transformation over a snapshot the caller
// fetched from storage. Nothing is cached between calls, so two calls over
// the same snapshot return the same result.
//
// Amounts are float64 at the boundary. Sums and comparisons go through
// decimal arithmetic normalized to cents, so balances and plans are exact
// to the cent and the named Tolerance is the only slack anywhere.
package ledger
