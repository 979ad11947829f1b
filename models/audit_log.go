package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog keeps a snapshot of a deleted document and the side effects the
// delete applied.
type AuditLog struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`
	CompanyID  string `gorm:"type:varchar(36);index;not null"`
	Action     string `gorm:"type:varchar(20);not null"`
	EntityType string `gorm:"type:varchar(40);not null"`
	EntityID   string `gorm:"type:varchar(36);index"`
	Snapshot   datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}
