// Package models defines the core domain records for settleup.
//
// # Records
//
//   - Expense: a shared cost paid by one member and split among members
//   - Split: one member's share of an expense
//   - SettlementEntry: a persisted, directed obligation ("payer owes payee")
//   - OptimizedSettlement: a computed payment instruction, never persisted
//   - GroupSummary: derived totals for presentation
//   - Group, User: the membership and identity records the ledger reads from
//
// # Design Principles
//
// 1. **Tagged records**: every entity is a concrete struct, never a loose map
// 2. **Constructors check invariants**: NewSettlementEntry rejects self-debts and non-positive amounts
// 3. **IDs over pointers**: relationships are expressed through string IDs (UUID format)
// 4. **Unix timestamps**: times are Unix seconds; zero means "not set"
package models
