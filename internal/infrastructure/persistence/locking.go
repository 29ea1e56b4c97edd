package persistence

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withRowLock applies FOR UPDATE on dialects that support it. SQLite
// serializes writers at the database level, so the clause is skipped there.
func withRowLock(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
