// Package dialog implements the conversational engine: a domain router that
// sends each message through a per-domain classify, extract, execute,
// respond pipeline running over the family ledger.
package dialog

import "jarvis/internal/ports"

// The repository interfaces are declared in the ports package so storage
// backends never depend on the engine. Aliases keep handler signatures
// readable here.
type (
	TransactionFilter     = ports.TransactionFilter
	BudgetRepository      = ports.BudgetRepository
	TransactionRepository = ports.TransactionRepository
	GoalRepository        = ports.GoalRepository
	ShoppingRepository    = ports.ShoppingRepository
	Store                 = ports.Store
)
