package core

import "inventorycore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set.
// The rules re-check the ledger invariants against every candidate state, so a
// transaction that would break them cannot commit regardless of which code
// path produced it.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(SingleActiveLoanRule())
	engine.Register(DeskExclusivityRule())
	engine.Register(LoanAssetLinkRule())
	return engine
}
