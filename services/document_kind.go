package services

import (
	"bizdesk-backend/models"
	"bizdesk-backend/pricing"
)

// DocumentKind describes where a document type lives and how it behaves.
type DocumentKind struct {
	Name           string
	Title          string
	Collection     string
	ItemCollection string
	ItemForeignKey string
	Sequence       string
	Prefix         string

	// ReferenceType tags stock movements; empty when the kind never moves stock.
	ReferenceType string
	MovementType  string
	// AffectsInventoryDefault applies when the input leaves the flag unset.
	AffectsInventoryDefault bool

	Policy pricing.TaxPolicy

	// OptionalRef is a nullable foreign key dropped when it dangles.
	OptionalRef           string
	OptionalRefCollection string

	// BalanceColumn tracks what is still open on the document.
	BalanceColumn string
	// ChargesCustomer adds the document total to the customer balance.
	ChargesCustomer bool

	Statuses []string
	// Dependents are documents pointing at this kind through a nullable key.
	Dependents []Dependent
}

// Dependent is a nullable reference to a document from another collection.
type Dependent struct {
	Collection string
	Column     string
}

var (
	Quotation = DocumentKind{
		Name:           "quotation",
		Title:          "Quotation",
		Collection:     models.CollectionQuotations,
		ItemCollection: models.CollectionQuotationItems,
		ItemForeignKey: "quotation_id",
		Sequence:       "quotations",
		Prefix:         "QUO",
		Policy:         pricing.TaxIncludedInPrice,
		Statuses:       []string{models.StatusDraft, models.StatusSent, models.StatusAccepted, models.StatusCancelled},
		Dependents:     []Dependent{{Collection: models.CollectionInvoices, Column: "quotation_id"}},
	}

	Invoice = DocumentKind{
		Name:                    "invoice",
		Title:                   "Invoice",
		Collection:              models.CollectionInvoices,
		ItemCollection:          models.CollectionInvoiceItems,
		ItemForeignKey:          "invoice_id",
		Sequence:                "invoices",
		Prefix:                  "INV",
		ReferenceType:           "INVOICE",
		MovementType:            models.MovementOut,
		AffectsInventoryDefault: true,
		Policy:                  pricing.TaxIncludedInPrice,
		OptionalRef:             "quotation_id",
		OptionalRefCollection:   models.CollectionQuotations,
		BalanceColumn:           "balance_due",
		ChargesCustomer:         true,
		Statuses:                []string{models.StatusDraft, models.StatusSent, models.StatusPaid, models.StatusCancelled},
		Dependents:              []Dependent{{Collection: models.CollectionCreditNotes, Column: "invoice_id"}},
	}

	CreditNote = DocumentKind{
		Name:                  "credit_note",
		Title:                 "Credit note",
		Collection:            models.CollectionCreditNotes,
		ItemCollection:        models.CollectionCreditNoteItems,
		ItemForeignKey:        "credit_note_id",
		Sequence:              "credit_notes",
		Prefix:                "CN",
		ReferenceType:         "CREDIT_NOTE",
		MovementType:          models.MovementIn,
		Policy:                pricing.TaxAddedOnTop,
		OptionalRef:           "invoice_id",
		OptionalRefCollection: models.CollectionInvoices,
		BalanceColumn:         "remaining_credit",
		Statuses:              []string{models.StatusDraft, models.StatusSent, models.StatusApplied, models.StatusCancelled},
	}
)

// Kinds lists every document kind.
func Kinds() []DocumentKind {
	return []DocumentKind{Quotation, Invoice, CreditNote}
}

// KindByName looks a kind up by Name.
func KindByName(name string) (DocumentKind, bool) {
	for _, k := range Kinds() {
		if k.Name == name {
			return k, true
		}
	}
	return DocumentKind{}, false
}

// PolicyFor returns the tax policy used to price lines of kind.
func PolicyFor(kind DocumentKind) pricing.TaxPolicy {
	return kind.Policy
}

// TracksInventory reports whether documents of this kind can move stock.
func (k DocumentKind) TracksInventory() bool {
	return k.ReferenceType != ""
}

// ReversalType is the reference tag of movements that cancel this kind's movements.
func (k DocumentKind) ReversalType() string {
	return k.ReferenceType + "_REVERSAL"
}

func (k DocumentKind) allowsStatus(status string) bool {
	for _, s := range k.Statuses {
		if s == status {
			return true
		}
	}
	return false
}
