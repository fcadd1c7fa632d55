package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockingUpdate is a scope enabling row-level FOR UPDATE locking. SQLite
// (used by tests) locks the whole database per write transaction already
// and rejects the clause, so it is skipped there.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
