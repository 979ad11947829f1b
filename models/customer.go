package models

import "time"

type Customer struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);index;not null"`

	Name    string `gorm:"not null"`
	Email   string
	Phone   string
	Address string
	TaxPIN  string `gorm:"column:tax_pin"`
	Notes   string

	// Balance is the amount the customer owes across unpaid invoices.
	Balance  float64 `gorm:"type:decimal(14,2);default:0"`
	IsActive bool    `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
