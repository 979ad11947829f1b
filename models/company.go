package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is the tenant. Every business row carries its id in company_id.
type Company struct {
	ID             string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string  `gorm:"not null" json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	TaxNumber      string  `json:"taxNumber"`
	DefaultTaxRate float64 `gorm:"type:decimal(5,2);default:16" json:"defaultTaxRate"`
	Currency       string  `gorm:"type:varchar(3);default:'KES'" json:"currency"`

	Users []User `gorm:"foreignKey:CompanyID" json:"users,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return
}
