package models

import "time"

const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// StockMovement is an append-only ledger row. Rows are never updated or
// deleted; a reversal is a new row pointing at the one it cancels.
type StockMovement struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);index;not null"`
	ProductID string `gorm:"type:varchar(36);index;not null"`

	MovementType string  `gorm:"type:varchar(3);not null"`
	Quantity     float64 `gorm:"type:decimal(14,3);not null"`

	ReferenceType      string  `gorm:"type:varchar(40);index:idx_stock_movements_reference,priority:1"`
	ReferenceID        string  `gorm:"type:varchar(36);index:idx_stock_movements_reference,priority:2"`
	ReversedMovementID *string `gorm:"type:varchar(36);index"`
	Notes              string

	CreatedAt time.Time
	UpdatedAt time.Time
}
