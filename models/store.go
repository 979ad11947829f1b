package models

import (
	"bizdesk-backend/datastore"

	"gorm.io/gorm"
)

// Collection names, equal to the gorm table names.
const (
	CollectionCustomers       = "customers"
	CollectionProducts        = "products"
	CollectionQuotations      = "quotations"
	CollectionQuotationItems  = "quotation_items"
	CollectionInvoices        = "invoices"
	CollectionInvoiceItems    = "invoice_items"
	CollectionCreditNotes     = "credit_notes"
	CollectionCreditNoteItems = "credit_note_items"
	CollectionAllocations     = "credit_note_allocations"
	CollectionStockMovements  = "stock_movements"
	CollectionAuditLogs       = "audit_logs"
)

func collectionModels() map[string]any {
	return map[string]any{
		CollectionCustomers:       &Customer{},
		CollectionProducts:        &Product{},
		CollectionQuotations:      &Quotation{},
		CollectionQuotationItems:  &QuotationItem{},
		CollectionInvoices:        &Invoice{},
		CollectionInvoiceItems:    &InvoiceItem{},
		CollectionCreditNotes:     &CreditNote{},
		CollectionCreditNoteItems: &CreditNoteItem{},
		CollectionAllocations:     &CreditNoteAllocation{},
		CollectionStockMovements:  &StockMovement{},
		CollectionAuditLogs:       &AuditLog{},
	}
}

// All lists every model for AutoMigrate, parents first.
func All() []any {
	return []any{
		&Company{},
		&User{},
		&Customer{},
		&Product{},
		&Quotation{},
		&QuotationItem{},
		&Invoice{},
		&InvoiceItem{},
		&CreditNote{},
		&CreditNoteItem{},
		&CreditNoteAllocation{},
		&StockMovement{},
		&AuditLog{},
		&DocumentSequence{},
	}
}

// NewStore wires every collection and procedure onto a gorm connection.
func NewStore(db *gorm.DB) *datastore.GormStore {
	s := datastore.NewGormStore(db)
	for name, m := range collectionModels() {
		s.Register(name, m)
	}
	return s.
		RegisterProcedure(datastore.ProcNextDocumentNumber, nextDocumentNumber).
		RegisterProcedure(datastore.ProcAdjustStockQuantity, adjustStockQuantity)
}

// NewMemoryStore returns an in-memory store with the same collections and
// the per-company number constraint.
func NewMemoryStore() *datastore.MemoryStore {
	names := make([]string, 0, len(collectionModels()))
	for name := range collectionModels() {
		names = append(names, name)
	}
	return datastore.NewMemoryStore(names...).
		Unique(CollectionQuotations, "number").
		Unique(CollectionInvoices, "number").
		Unique(CollectionCreditNotes, "number")
}

func nextDocumentNumber(tx *gorm.DB, tenant datastore.Tenant, args datastore.Args) (any, error) {
	name := datastore.Row(args).String("sequence")
	prefix := datastore.Row(args).String("prefix")

	res := tx.Model(&DocumentSequence{}).
		Where("company_id = ? AND name = ?", string(tenant), name).
		Update("value", gorm.Expr("value + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		seq := DocumentSequence{CompanyID: string(tenant), Name: name, Value: 1}
		if err := tx.Create(&seq).Error; err != nil {
			return nil, err
		}
		return datastore.FormatDocumentNumber(prefix, seq.Value), nil
	}

	var seq DocumentSequence
	if err := tx.Where("company_id = ? AND name = ?", string(tenant), name).First(&seq).Error; err != nil {
		return nil, err
	}
	return datastore.FormatDocumentNumber(prefix, seq.Value), nil
}

func adjustStockQuantity(tx *gorm.DB, tenant datastore.Tenant, args datastore.Args) (any, error) {
	productID := datastore.Row(args).String("product_id")
	delta := datastore.Row(args).Float("delta")

	res := tx.Model(&Product{}).
		Where("company_id = ? AND id = ?", string(tenant), productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, datastore.NotFound(CollectionProducts, productID)
	}

	var p Product
	if err := tx.Select("stock_quantity").Where("company_id = ? AND id = ?", string(tenant), productID).First(&p).Error; err != nil {
		return nil, err
	}
	return p.StockQuantity, nil
}
