package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentSequence holds the last number handed out per company and series.
type DocumentSequence struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_document_sequences_company_name,priority:1"`
	Name      string `gorm:"type:varchar(40);not null;uniqueIndex:idx_document_sequences_company_name,priority:2"`
	Value     int    `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *DocumentSequence) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return
}
