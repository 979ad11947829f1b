package models

import "time"

type Product struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);index;not null"`

	SKU         string `gorm:"column:sku;index"`
	Name        string `gorm:"not null"`
	Description string
	Category    string  `gorm:"default:'General'"`
	UnitPrice   float64 `gorm:"type:decimal(14,2);not null"`

	TaxPercent   float64 `gorm:"type:decimal(5,2);default:0"`
	TaxInclusive bool    `gorm:"default:false"`

	StockQuantity float64 `gorm:"type:decimal(14,3);default:0"`
	ReorderLevel  float64 `gorm:"type:decimal(14,3);default:0"`
	IsActive      bool    `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
