package models

import "time"

// Document statuses shared by quotations, invoices and credit notes.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusAccepted  = "accepted"
	StatusPaid      = "paid"
	StatusApplied   = "applied"
	StatusCancelled = "cancelled"
)

// DocumentTotals are recomputed from the items on every save.
type DocumentTotals struct {
	Subtotal    float64 `gorm:"type:decimal(14,2);not null;default:0"`
	TaxAmount   float64 `gorm:"type:decimal(14,2);not null;default:0"`
	TotalAmount float64 `gorm:"type:decimal(14,2);not null;default:0"`
}

// DocumentLine is the priced line shared by every item table.
type DocumentLine struct {
	ProductID       *string `gorm:"type:varchar(36);index"`
	Position        int     `gorm:"not null;default:0"`
	Description     string  `gorm:"not null"`
	Quantity        float64 `gorm:"type:decimal(14,3);not null"`
	UnitPrice       float64 `gorm:"type:decimal(14,2);not null"`
	DiscountPercent float64 `gorm:"type:decimal(5,2);default:0"`
	TaxPercent      float64 `gorm:"type:decimal(5,2);default:0"`
	TaxInclusive    bool    `gorm:"default:false"`
	TaxAmount       float64 `gorm:"type:decimal(14,2);default:0"`
	LineTotal       float64 `gorm:"type:decimal(14,2);not null"`
}

type Quotation struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_quotations_company_number,priority:1"`
	Number    string `gorm:"type:varchar(32);not null;uniqueIndex:idx_quotations_company_number,priority:2"`

	CustomerID string    `gorm:"type:varchar(36);index;not null"`
	Customer   *Customer `gorm:"foreignKey:CustomerID"`

	IssueDate  time.Time
	ValidUntil *time.Time
	Status     string `gorm:"type:varchar(20);default:'draft'"`
	Notes      string

	DocumentTotals `gorm:"embedded"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type QuotationItem struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	CompanyID   string `gorm:"type:varchar(36);index;not null"`
	QuotationID string `gorm:"type:varchar(36);index;not null"`

	DocumentLine `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Invoice struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_invoices_company_number,priority:1"`
	Number    string `gorm:"type:varchar(32);not null;uniqueIndex:idx_invoices_company_number,priority:2"`

	CustomerID string    `gorm:"type:varchar(36);index;not null"`
	Customer   *Customer `gorm:"foreignKey:CustomerID"`

	// QuotationID is optional; a dangling reference is dropped on insert.
	QuotationID *string    `gorm:"type:varchar(36);index"`
	Quotation   *Quotation `gorm:"foreignKey:QuotationID"`

	IssueDate        time.Time
	DueDate          *time.Time
	Status           string `gorm:"type:varchar(20);default:'draft'"`
	Notes            string
	AffectsInventory bool `gorm:"default:true"`

	DocumentTotals `gorm:"embedded"`
	BalanceDue     float64 `gorm:"type:decimal(14,2);not null;default:0"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type InvoiceItem struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);index;not null"`
	InvoiceID string `gorm:"type:varchar(36);index;not null"`

	DocumentLine `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreditNote struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CompanyID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_credit_notes_company_number,priority:1"`
	Number    string `gorm:"type:varchar(32);not null;uniqueIndex:idx_credit_notes_company_number,priority:2"`

	CustomerID string    `gorm:"type:varchar(36);index;not null"`
	Customer   *Customer `gorm:"foreignKey:CustomerID"`

	InvoiceID *string  `gorm:"type:varchar(36);index"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID"`

	IssueDate        time.Time
	Reason           string
	Status           string `gorm:"type:varchar(20);default:'draft'"`
	Notes            string
	AffectsInventory bool `gorm:"default:false"`

	DocumentTotals  `gorm:"embedded"`
	RemainingCredit float64 `gorm:"type:decimal(14,2);not null;default:0"`

	Items []CreditNoteItem `gorm:"foreignKey:CreditNoteID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreditNoteItem struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	CompanyID    string `gorm:"type:varchar(36);index;not null"`
	CreditNoteID string `gorm:"type:varchar(36);index;not null"`

	DocumentLine `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreditNoteAllocation records credit applied against an invoice.
type CreditNoteAllocation struct {
	ID           string  `gorm:"type:varchar(36);primaryKey"`
	CompanyID    string  `gorm:"type:varchar(36);index;not null"`
	CreditNoteID string  `gorm:"type:varchar(36);index;not null"`
	InvoiceID    string  `gorm:"type:varchar(36);index;not null"`
	Amount       float64 `gorm:"type:decimal(14,2);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
