package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&StockNode{},
		&Event{},
		&EventRoot{},
		&ShareLink{},
		&Verification{},
		&ParentLoadState{},
		&AuditLog{},
		&ItemExpiry{},
		&PeriodicRecord{},
		&ReassortItem{},
		&ReassortBatch{},
	)
}
