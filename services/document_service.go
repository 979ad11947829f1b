package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bizdesk-backend/cache"
	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/notify"
	"bizdesk-backend/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// half a cent
const moneyEpsilon = 0.005

// DocumentInput is the editable part of a quotation, invoice or credit note.
type DocumentInput struct {
	CustomerID       string
	IssueDate        *time.Time
	DueDate          *time.Time
	ValidUntil       *time.Time
	Status           string
	Notes            string
	Reason           string
	Reference        *string
	AffectsInventory *bool
	Items            []pricing.LineItem
}

// Outcome is what a successful operation leaves behind.
type Outcome struct {
	Document     datastore.Row
	Number       string
	State        State
	Warnings     []*SideEffectWarning
	Notification notify.Notification
}

// Degraded reports whether a best-effort step failed.
func (o *Outcome) Degraded() bool { return len(o.Warnings) > 0 }

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(datastore.Tenant, ...string) {}

// DocumentService creates, edits and deletes documents against a Store that
// has no multi-statement transactions. Each operation is a saga; see Step.
type DocumentService struct {
	store    datastore.Store
	ledger   *StockLedger
	notifier notify.Notifier
	cache    cache.Invalidator
	log      *zap.Logger
	now      func() time.Time
}

func NewDocumentService(store datastore.Store, notifier notify.Notifier, invalidator cache.Invalidator, log *zap.Logger) *DocumentService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &DocumentService{
		store:    store,
		ledger:   NewStockLedger(store),
		notifier: notifier,
		cache:    invalidator,
		log:      log,
		now:      time.Now,
	}
}

// Get loads a document with its items under "items".
func (s *DocumentService) Get(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string) (datastore.Row, error) {
	return s.load(ctx, tenant, kind, id)
}

// List returns the newest documents first, optionally for one customer.
func (s *DocumentService) List(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, customerID string, limit int) ([]datastore.Row, error) {
	where := datastore.Predicate{}
	if customerID != "" {
		where["customer_id"] = customerID
	}
	opts := []datastore.SelectOption{datastore.OrderBy("created_at", true)}
	if limit > 0 {
		opts = append(opts, datastore.Limit(limit))
	}
	rows, err := s.store.Select(ctx, tenant, kind.Collection, where, opts...)
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// Create numbers and stores a document with its items, then applies stock
// movements and customer balance as best-effort side effects.
func (s *DocumentService) Create(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, in DocumentInput) (*Outcome, error) {
	out, err := s.create(ctx, tenant, kind, in)
	s.finish(ctx, tenant, kind, "create", out, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the header and items of a document. Existing stock
// movements are reversed first and re-applied for the new items.
func (s *DocumentService) Update(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string, in DocumentInput) (*Outcome, error) {
	out, err := s.update(ctx, tenant, kind, id, in)
	s.finish(ctx, tenant, kind, "update", out, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a document after restoring the balances it touched and
// reversing its stock movements. An audit entry is written last.
func (s *DocumentService) Delete(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string) (*Outcome, error) {
	out, err := s.delete(ctx, tenant, kind, id)
	s.finish(ctx, tenant, kind, "delete", out, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyCredit allocates amount of a credit note against an invoice.
func (s *DocumentService) ApplyCredit(ctx context.Context, tenant datastore.Tenant, creditNoteID, invoiceID string, amount float64) (*Outcome, error) {
	out, err := s.applyCredit(ctx, tenant, creditNoteID, invoiceID, amount)
	s.finish(ctx, tenant, CreditNote, "apply", out, err, Invoice.Collection)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConvertQuotation creates an invoice from a quotation's items and marks the
// quotation accepted. A nil affectsInventory uses the invoice default.
func (s *DocumentService) ConvertQuotation(ctx context.Context, tenant datastore.Tenant, quotationID string, affectsInventory *bool) (*Outcome, error) {
	out, err := s.convert(ctx, tenant, quotationID, affectsInventory)
	s.finish(ctx, tenant, Quotation, "convert", out, err, Invoice.Collection, "products", "stock_movements", "customers")
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DocumentService) create(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, in DocumentInput) (*Outcome, error) {
	if err := validateInput(kind, in); err != nil {
		return nil, err
	}
	items, totals := pricing.PriceItems(in.Items, kind.Policy)
	header := s.headerRow(kind, in, totals)
	if _, ok := header["status"]; !ok {
		header["status"] = models.StatusDraft
	}
	if _, ok := header["issue_date"]; !ok {
		header["issue_date"] = s.now()
	}

	var (
		number   string
		created  datastore.Row
		itemRows []datastore.Row
	)
	saga := NewSaga(kind.Name+".create", s.log).Add(
		Step{
			Name:  "generate number",
			State: StateNumberGenerated,
			Action: func(ctx context.Context) error {
				n, err := s.nextNumber(ctx, tenant, kind)
				number = n
				return err
			},
		},
		Step{
			Name:  "insert header",
			State: StateHeaderInserted,
			Action: func(ctx context.Context) error {
				header["number"] = number
				row, err := s.insertHeader(ctx, tenant, kind, header)
				created = row
				return err
			},
			Compensate: func(ctx context.Context) error {
				return s.store.Delete(ctx, tenant, kind.Collection, datastore.Predicate{"id": created.String("id")})
			},
		},
		Step{
			Name:  "insert items",
			State: StateItemsInserted,
			Action: func(ctx context.Context) error {
				itemRows = buildItemRows(kind, created.String("id"), items)
				return translate(s.store.InsertMany(ctx, tenant, kind.ItemCollection, itemRows))
			},
		},
	)
	if kind.TracksInventory() && header.Bool("affects_inventory") {
		saga.Add(Step{
			Name:       "apply stock movements",
			State:      StateSideEffectsApplied,
			BestEffort: true,
			Action: func(ctx context.Context) error {
				return s.ledger.Record(ctx, tenant, stockLines(items), kind.MovementType, kind.ReferenceType, created.String("id"))
			},
		})
	}
	if kind.ChargesCustomer {
		saga.Add(Step{
			Name:       "update customer balance",
			BestEffort: true,
			Action: func(ctx context.Context) error {
				return s.adjustBalance(ctx, tenant, balanceAdjustment{models.CollectionCustomers, in.CustomerID, "balance", totals.TotalAmount})
			},
		})
	}

	warnings, err := saga.Run(ctx)
	if err != nil {
		return nil, err
	}
	created["items"] = itemRows
	return &Outcome{Document: created, Number: number, State: saga.State(), Warnings: warnings}, nil
}

func (s *DocumentService) update(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string, in DocumentInput) (*Outcome, error) {
	if err := validateInput(kind, in); err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, tenant, kind, id)
	if err != nil {
		return nil, err
	}
	oldItems := rowsOf(existing["items"])
	items, totals := pricing.PriceItems(in.Items, kind.Policy)

	patch := s.headerRow(kind, in, totals)
	keepStored(kind, in, existing, patch)
	if kind.BalanceColumn != "" {
		settled := existing.Float("total_amount") - existing.Float(kind.BalanceColumn)
		patch[kind.BalanceColumn] = max(totals.TotalAmount-settled, 0)
	}
	restore := datastore.Row{}
	for k := range patch {
		restore[k] = existing[k]
	}
	newItemRows := buildItemRows(kind, id, items)

	var (
		updated  datastore.Row
		reversed int
	)
	saga := NewSaga(kind.Name+".update", s.log)
	if kind.TracksInventory() {
		saga.Add(Step{
			Name:       "reverse stock movements",
			State:      StateMovementsReversed,
			BestEffort: true,
			Action: func(ctx context.Context) error {
				n, err := s.ledger.Reverse(ctx, tenant, kind.ReferenceType, id)
				reversed = n
				return err
			},
			Compensate: func(ctx context.Context) error {
				if reversed == 0 {
					return nil
				}
				return s.ledger.Record(ctx, tenant, stockLinesFromRows(oldItems), kind.MovementType, kind.ReferenceType, id)
			},
		})
	}
	saga.Add(
		Step{
			Name:  "update header",
			State: StateHeaderUpdated,
			Action: func(ctx context.Context) error {
				row, err := s.updateHeader(ctx, tenant, kind, id, patch)
				updated = row
				return err
			},
			Compensate: func(ctx context.Context) error {
				_, err := s.store.Update(ctx, tenant, kind.Collection, id, restore)
				return err
			},
		},
		Step{
			Name: "delete old items",
			Action: func(ctx context.Context) error {
				return translate(s.store.Delete(ctx, tenant, kind.ItemCollection, datastore.Predicate{kind.ItemForeignKey: id}))
			},
			Compensate: func(ctx context.Context) error {
				return s.store.InsertMany(ctx, tenant, kind.ItemCollection, oldItems)
			},
		},
		Step{
			Name:  "insert items",
			State: StateItemsReplaced,
			Action: func(ctx context.Context) error {
				return translate(s.store.InsertMany(ctx, tenant, kind.ItemCollection, newItemRows))
			},
		},
	)
	if kind.TracksInventory() && patch.Bool("affects_inventory") {
		saga.Add(Step{
			Name:       "apply stock movements",
			State:      StateSideEffectsApplied,
			BestEffort: true,
			Action: func(ctx context.Context) error {
				return s.ledger.Record(ctx, tenant, stockLines(items), kind.MovementType, kind.ReferenceType, id)
			},
		})
	}
	if kind.ChargesCustomer {
		oldCustomer, oldTotal := existing.String("customer_id"), existing.Float("total_amount")
		saga.Add(Step{
			Name:       "update customer balance",
			BestEffort: true,
			Action: func(ctx context.Context) error {
				if oldCustomer == in.CustomerID {
					return s.adjustBalance(ctx, tenant, balanceAdjustment{models.CollectionCustomers, in.CustomerID, "balance", totals.TotalAmount - oldTotal})
				}
				return errors.Join(
					s.adjustBalance(ctx, tenant, balanceAdjustment{models.CollectionCustomers, oldCustomer, "balance", -oldTotal}),
					s.adjustBalance(ctx, tenant, balanceAdjustment{models.CollectionCustomers, in.CustomerID, "balance", totals.TotalAmount}),
				)
			},
		})
	}

	warnings, err := saga.Run(ctx)
	if err != nil {
		return nil, err
	}
	updated["items"] = newItemRows
	return &Outcome{Document: updated, Number: updated.String("number"), State: saga.State(), Warnings: warnings}, nil
}

func (s *DocumentService) delete(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string) (*Outcome, error) {
	existing, err := s.load(ctx, tenant, kind, id)
	if err != nil {
		return nil, err
	}
	items := rowsOf(existing["items"])
	header := existing.Clone()
	delete(header, "items")

	var (
		effects  []string
		restored []balanceAdjustment
		removed  []datastore.Row
	)
	saga := NewSaga(kind.Name+".delete", s.log)

	if allocKey := allocationColumn(kind); allocKey != "" {
		saga.Add(Step{
			Name:  "restore balances",
			State: StateBalancesRestored,
			Action: func(ctx context.Context) error {
				allocations, err := s.store.Select(ctx, tenant, models.CollectionAllocations, datastore.Predicate{allocKey: id})
				if err != nil {
					return translate(err)
				}
				for _, a := range allocations {
					for _, adj := range allocationRestores(kind, header, a) {
						if err := s.adjustBalance(ctx, tenant, adj); err != nil {
							return err
						}
						restored = append(restored, adj)
						effects = append(effects, fmt.Sprintf("%s %s %s %+.2f", adj.collection, adj.id, adj.column, adj.delta))
					}
				}
				if len(allocations) == 0 {
					return nil
				}
				if err := s.store.Delete(ctx, tenant, models.CollectionAllocations, datastore.Predicate{allocKey: id}); err != nil {
					return translate(err)
				}
				removed = allocations
				effects = append(effects, fmt.Sprintf("removed %d credit allocations", len(allocations)))
				return nil
			},
			Compensate: func(ctx context.Context) error {
				var errs []error
				if len(removed) > 0 {
					errs = append(errs, s.store.InsertMany(ctx, tenant, models.CollectionAllocations, removed))
				}
				for i := len(restored) - 1; i >= 0; i-- {
					errs = append(errs, s.adjustBalance(ctx, tenant, restored[i].inverse()))
				}
				return errors.Join(errs...)
			},
		})
	}

	for _, dep := range kind.Dependents {
		var detached []string
		saga.Add(Step{
			Name: "detach " + dep.Collection,
			Action: func(ctx context.Context) error {
				rows, err := s.store.Select(ctx, tenant, dep.Collection, datastore.Predicate{dep.Column: id})
				if err != nil {
					return translate(err)
				}
				for _, r := range rows {
					if _, err := s.store.Update(ctx, tenant, dep.Collection, r.String("id"), datastore.Row{dep.Column: nil}); err != nil {
						return translate(err)
					}
					detached = append(detached, r.String("id"))
				}
				if len(detached) > 0 {
					effects = append(effects, fmt.Sprintf("detached %d %s", len(detached), dep.Collection))
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				var errs []error
				for _, depID := range detached {
					_, err := s.store.Update(ctx, tenant, dep.Collection, depID, datastore.Row{dep.Column: id})
					errs = append(errs, err)
				}
				return errors.Join(errs...)
			},
		})
	}

	if kind.TracksInventory() {
		var reversed int
		saga.Add(Step{
			Name:       "reverse stock movements",
			State:      StateMovementsReversed,
			BestEffort: true,
			Action: func(ctx context.Context) error {
				n, err := s.ledger.Reverse(ctx, tenant, kind.ReferenceType, id)
				reversed = n
				if n > 0 {
					effects = append(effects, fmt.Sprintf("reversed %d stock movements", n))
				}
				return err
			},
			Compensate: func(ctx context.Context) error {
				if reversed == 0 {
					return nil
				}
				return s.ledger.Record(ctx, tenant, stockLinesFromRows(items), kind.MovementType, kind.ReferenceType, id)
			},
		})
	}

	saga.Add(
		Step{
			Name: "delete items",
			Action: func(ctx context.Context) error {
				return translate(s.store.Delete(ctx, tenant, kind.ItemCollection, datastore.Predicate{kind.ItemForeignKey: id}))
			},
			Compensate: func(ctx context.Context) error {
				if len(items) == 0 {
					return nil
				}
				return s.store.InsertMany(ctx, tenant, kind.ItemCollection, items)
			},
		},
		Step{
			Name:  "delete header",
			State: StateDeleted,
			Action: func(ctx context.Context) error {
				return translate(s.store.Delete(ctx, tenant, kind.Collection, datastore.Predicate{"id": id}))
			},
		},
	)

	if kind.ChargesCustomer {
		saga.Add(Step{
			Name:       "update customer balance",
			BestEffort: true,
			Action: func(ctx context.Context) error {
				adj := balanceAdjustment{models.CollectionCustomers, header.String("customer_id"), "balance", -header.Float("total_amount")}
				if err := s.adjustBalance(ctx, tenant, adj); err != nil {
					return err
				}
				effects = append(effects, fmt.Sprintf("customers %s balance %+.2f", adj.id, adj.delta))
				return nil
			},
		})
	}

	saga.Add(Step{
		Name:       "write audit log",
		BestEffort: true,
		Action: func(ctx context.Context) error {
			return s.audit(ctx, tenant, "delete", kind.Name, id, map[string]any{
				"document":     header,
				"items":        items,
				"side_effects": effects,
			})
		},
	})

	warnings, err := saga.Run(ctx)
	if err != nil {
		return nil, err
	}
	header["items"] = items
	return &Outcome{Document: header, Number: header.String("number"), State: saga.State(), Warnings: warnings}, nil
}

func (s *DocumentService) applyCredit(ctx context.Context, tenant datastore.Tenant, creditNoteID, invoiceID string, amount float64) (*Outcome, error) {
	if creditNoteID == "" || invoiceID == "" {
		return nil, &ValidationError{Err: ErrInvalidInput, Details: "credit note and invoice are required"}
	}
	if amount <= 0 {
		return nil, &ValidationError{Err: ErrInvalidAmount}
	}

	note, err := s.loadHeader(ctx, tenant, CreditNote, creditNoteID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.loadHeader(ctx, tenant, Invoice, invoiceID)
	if err != nil {
		return nil, err
	}
	if note.String("customer_id") != invoice.String("customer_id") {
		return nil, &ValidationError{Err: ErrCustomerMismatch}
	}
	remaining, due := note.Float("remaining_credit"), invoice.Float("balance_due")
	if amount > remaining+moneyEpsilon {
		return nil, &ValidationError{Err: ErrInsufficientFunds, Details: "credit note has " + pricing.FormatMoney(remaining) + " remaining"}
	}
	if amount > due+moneyEpsilon {
		return nil, &ValidationError{Err: ErrInsufficientFunds, Details: "invoice has " + pricing.FormatMoney(due) + " outstanding"}
	}

	var (
		allocation datastore.Row
		updated    datastore.Row
	)
	saga := NewSaga("credit_note.apply", s.log).Add(
		Step{
			Name:  "insert allocation",
			State: StateAllocated,
			Action: func(ctx context.Context) error {
				row, err := s.store.Insert(ctx, tenant, models.CollectionAllocations, datastore.Row{
					"credit_note_id": creditNoteID,
					"invoice_id":     invoiceID,
					"amount":         amount,
				})
				allocation = row
				return translate(err)
			},
			Compensate: func(ctx context.Context) error {
				return s.store.Delete(ctx, tenant, models.CollectionAllocations, datastore.Predicate{"id": allocation.String("id")})
			},
		},
		Step{
			Name: "reduce invoice balance",
			Action: func(ctx context.Context) error {
				patch := datastore.Row{"balance_due": due - amount}
				if due-amount <= moneyEpsilon {
					patch["status"] = models.StatusPaid
				}
				_, err := s.store.Update(ctx, tenant, Invoice.Collection, invoiceID, patch)
				return translate(err)
			},
			Compensate: func(ctx context.Context) error {
				_, err := s.store.Update(ctx, tenant, Invoice.Collection, invoiceID, datastore.Row{
					"balance_due": due,
					"status":      invoice["status"],
				})
				return err
			},
		},
		Step{
			Name: "reduce remaining credit",
			Action: func(ctx context.Context) error {
				patch := datastore.Row{"remaining_credit": remaining - amount}
				if remaining-amount <= moneyEpsilon {
					patch["status"] = models.StatusApplied
				}
				row, err := s.store.Update(ctx, tenant, CreditNote.Collection, creditNoteID, patch)
				updated = row
				return translate(err)
			},
		},
		Step{
			Name:       "update customer balance",
			BestEffort: true,
			Action: func(ctx context.Context) error {
				return s.adjustBalance(ctx, tenant, balanceAdjustment{models.CollectionCustomers, note.String("customer_id"), "balance", -amount})
			},
		},
	)

	warnings, err := saga.Run(ctx)
	if err != nil {
		return nil, err
	}
	updated["allocation"] = allocation
	return &Outcome{Document: updated, Number: updated.String("number"), State: saga.State(), Warnings: warnings}, nil
}

func (s *DocumentService) convert(ctx context.Context, tenant datastore.Tenant, quotationID string, affectsInventory *bool) (*Outcome, error) {
	quotation, err := s.load(ctx, tenant, Quotation, quotationID)
	if err != nil {
		return nil, err
	}
	if quotation.String("status") == models.StatusAccepted {
		return nil, &ValidationError{Err: ErrAlreadyConverted, Details: quotation.String("number")}
	}

	in := DocumentInput{
		CustomerID:       quotation.String("customer_id"),
		Notes:            quotation.String("notes"),
		Reference:        &quotationID,
		AffectsInventory: affectsInventory,
		Items:            lineItemsFromRows(rowsOf(quotation["items"])),
	}
	out, err := s.create(ctx, tenant, Invoice, in)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Update(ctx, tenant, Quotation.Collection, quotationID, datastore.Row{"status": models.StatusAccepted}); err != nil {
		w := &SideEffectWarning{Step: "mark quotation accepted", Err: translate(err)}
		s.log.Warn("side effect failed", zap.String("saga", "quotation.convert"), zap.String("step", w.Step), zap.Error(err))
		out.Warnings = append(out.Warnings, w)
	}
	return out, nil
}

var opWords = map[string][2]string{
	"create":  {"create", "created"},
	"update":  {"update", "updated"},
	"delete":  {"delete", "deleted"},
	"apply":   {"apply", "applied"},
	"convert": {"convert", "converted"},
}

// finish sends the one notification of an operation and, on success,
// invalidates the cached queries it touched.
func (s *DocumentService) finish(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, op string, out *Outcome, err error, extraKeys ...string) {
	words := opWords[op]
	n := notify.Notification{Tenant: string(tenant)}

	if err != nil {
		n.Level = notify.LevelError
		n.Title = fmt.Sprintf("Could not %s %s", words[0], strings.ToLower(kind.Title))
		n.Message = UserMessage(err)
		s.log.Info("operation failed",
			zap.String("tenant", string(tenant)),
			zap.String("kind", kind.Name),
			zap.String("op", op),
			zap.Error(err))
		s.notifier.Notify(ctx, n)
		return
	}

	s.cache.Invalidate(tenant, append(invalidationKeys(kind, out.Document), extraKeys...)...)

	n.Reference = out.Number
	n.Title = fmt.Sprintf("%s %s", kind.Title, words[1])
	if out.Degraded() {
		problems := make([]string, len(out.Warnings))
		for i, w := range out.Warnings {
			problems[i] = w.Error()
		}
		n.Level = notify.LevelWarning
		n.Message = fmt.Sprintf("%s %s was %s, but some follow-up steps failed: %s",
			kind.Title, out.Number, words[1], strings.Join(problems, "; "))
	} else {
		n.Level = notify.LevelSuccess
		n.Message = fmt.Sprintf("%s %s was %s", kind.Title, out.Number, words[1])
	}
	out.Notification = n
	s.notifier.Notify(ctx, n)
}

func invalidationKeys(kind DocumentKind, doc datastore.Row) []string {
	keys := []string{kind.Collection, "reports"}
	if customer := doc.String("customer_id"); customer != "" {
		keys = append(keys, cache.Key(kind.Collection, "customer", customer))
	}
	if kind.TracksInventory() {
		keys = append(keys, "products", "stock_movements")
	}
	if kind.ChargesCustomer || kind.BalanceColumn != "" {
		keys = append(keys, "customers")
	}
	return keys
}

func (s *DocumentService) load(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string) (datastore.Row, error) {
	rows, err := s.store.Select(ctx, tenant, kind.Collection, datastore.Predicate{"id": id},
		datastore.Limit(1),
		datastore.Expand(kind.ItemCollection, kind.ItemForeignKey, "items"))
	if err != nil {
		return nil, translate(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(kind.Title), id, ErrNotFound)
	}
	return rows[0], nil
}

func (s *DocumentService) loadHeader(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string) (datastore.Row, error) {
	rows, err := s.store.Select(ctx, tenant, kind.Collection, datastore.Predicate{"id": id}, datastore.Limit(1))
	if err != nil {
		return nil, translate(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(kind.Title), id, ErrNotFound)
	}
	return rows[0], nil
}

func (s *DocumentService) nextNumber(ctx context.Context, tenant datastore.Tenant, kind DocumentKind) (string, error) {
	v, err := s.store.Call(ctx, tenant, datastore.ProcNextDocumentNumber, datastore.Args{
		"sequence": kind.Sequence,
		"prefix":   kind.Prefix,
	})
	if err != nil {
		return "", translate(err)
	}
	number, _ := v.(string)
	if number == "" {
		return "", fmt.Errorf("%s returned no number", datastore.ProcNextDocumentNumber)
	}
	return number, nil
}

// insertHeader retries once without the optional reference when the store
// rejects the row because of it.
func (s *DocumentService) insertHeader(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, row datastore.Row) (datastore.Row, error) {
	created, err := s.store.Insert(ctx, tenant, kind.Collection, row)
	if err == nil {
		return created, nil
	}
	if s.dropRejectedRef(kind, row, err) {
		created, err = s.store.Insert(ctx, tenant, kind.Collection, row)
	}
	if err != nil {
		return nil, translate(err)
	}
	return created, nil
}

// updateHeader is insertHeader for an existing row.
func (s *DocumentService) updateHeader(ctx context.Context, tenant datastore.Tenant, kind DocumentKind, id string, patch datastore.Row) (datastore.Row, error) {
	updated, err := s.store.Update(ctx, tenant, kind.Collection, id, patch)
	if err == nil {
		return updated, nil
	}
	if s.dropRejectedRef(kind, patch, err) {
		updated, err = s.store.Update(ctx, tenant, kind.Collection, id, patch)
	}
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// dropRejectedRef clears the optional reference of row when err names it.
func (s *DocumentService) dropRejectedRef(kind DocumentKind, row datastore.Row, err error) bool {
	var se *datastore.Error
	if kind.OptionalRef == "" || row[kind.OptionalRef] == nil || !errors.As(err, &se) {
		return false
	}
	if (se.Kind != datastore.KindForeignKey && se.Kind != datastore.KindConflict) || !se.Names(kind.OptionalRef) {
		return false
	}
	s.log.Warn("reference rejected, retrying without it",
		zap.String("kind", kind.Name),
		zap.String("column", kind.OptionalRef),
		zap.String("constraint", se.Constraint))
	row[kind.OptionalRef] = nil
	return true
}

// keepStored leaves the inventory flag and the optional reference as stored
// when an update does not set them. An empty reference clears it.
func keepStored(kind DocumentKind, in DocumentInput, existing, patch datastore.Row) {
	if kind.TracksInventory() && in.AffectsInventory == nil {
		patch["affects_inventory"] = existing.Bool("affects_inventory")
	}
	if kind.OptionalRef != "" && in.Reference == nil {
		delete(patch, kind.OptionalRef)
	}
}

// headerRow holds the columns an input sets. Unset dates and status are left
// out; the inventory flag and the reference get their create defaults, which
// keepStored undoes for an update.
func (s *DocumentService) headerRow(kind DocumentKind, in DocumentInput, totals pricing.Totals) datastore.Row {
	row := datastore.Row{
		"customer_id":  in.CustomerID,
		"notes":        in.Notes,
		"subtotal":     totals.Subtotal,
		"tax_amount":   totals.TaxAmount,
		"total_amount": totals.TotalAmount,
	}
	if in.Status != "" {
		row["status"] = in.Status
	}
	if in.IssueDate != nil {
		row["issue_date"] = *in.IssueDate
	}
	if kind.TracksInventory() {
		affects := kind.AffectsInventoryDefault
		if in.AffectsInventory != nil {
			affects = *in.AffectsInventory
		}
		row["affects_inventory"] = affects
	}
	if kind.OptionalRef != "" {
		if in.Reference != nil && *in.Reference != "" {
			row[kind.OptionalRef] = *in.Reference
		} else {
			row[kind.OptionalRef] = nil
		}
	}
	if kind.BalanceColumn != "" {
		row[kind.BalanceColumn] = totals.TotalAmount
	}
	switch kind.Name {
	case Quotation.Name:
		if in.ValidUntil != nil {
			row["valid_until"] = *in.ValidUntil
		}
	case Invoice.Name:
		if in.DueDate != nil {
			row["due_date"] = *in.DueDate
		}
	case CreditNote.Name:
		row["reason"] = in.Reason
	}
	return row
}

func validateInput(kind DocumentKind, in DocumentInput) error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return &ValidationError{Err: ErrCustomerRequired}
	}
	if len(in.Items) == 0 {
		return &ValidationError{Err: ErrNoItems}
	}
	for i, it := range in.Items {
		details := fmt.Sprintf("item %d", i+1)
		switch {
		case it.Quantity <= 0:
			return &ValidationError{Err: ErrInvalidQuantity, Details: details}
		case it.UnitPrice < 0:
			return &ValidationError{Err: ErrInvalidPrice, Details: details}
		case it.DiscountPercent < 0 || it.DiscountPercent > 100 || it.TaxPercent < 0 || it.TaxPercent > 100:
			return &ValidationError{Err: ErrInvalidPercent, Details: details}
		case it.ProductID == "" && strings.TrimSpace(it.Description) == "":
			return &ValidationError{Err: ErrDescription, Details: details}
		}
	}
	if in.Status != "" && !kind.allowsStatus(in.Status) {
		return &ValidationError{Err: ErrInvalidStatus, Details: in.Status}
	}
	return nil
}

func buildItemRows(kind DocumentKind, docID string, items []pricing.LineItem) []datastore.Row {
	rows := make([]datastore.Row, len(items))
	for i, it := range items {
		var productID any
		if it.ProductID != "" {
			productID = it.ProductID
		}
		rows[i] = datastore.Row{
			"id":                uuid.NewString(),
			kind.ItemForeignKey: docID,
			"product_id":        productID,
			"position":          i,
			"description":       it.Description,
			"quantity":          it.Quantity,
			"unit_price":        it.UnitPrice,
			"discount_percent":  it.DiscountPercent,
			"tax_percent":       it.TaxPercent,
			"tax_inclusive":     it.TaxInclusive,
			"tax_amount":        it.TaxAmount,
			"line_total":        it.LineTotal,
		}
	}
	return rows
}

func lineItemsFromRows(rows []datastore.Row) []pricing.LineItem {
	items := make([]pricing.LineItem, len(rows))
	for i, r := range rows {
		items[i] = pricing.LineItem{
			ProductID:       r.String("product_id"),
			Description:     r.String("description"),
			Quantity:        r.Float("quantity"),
			UnitPrice:       r.Float("unit_price"),
			DiscountPercent: r.Float("discount_percent"),
			TaxPercent:      r.Float("tax_percent"),
			TaxInclusive:    r.Bool("tax_inclusive"),
		}
	}
	return items
}

func stockLines(items []pricing.LineItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

func stockLinesFromRows(rows []datastore.Row) []StockLine {
	lines := make([]StockLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, StockLine{ProductID: r.String("product_id"), Quantity: r.Float("quantity")})
	}
	return lines
}

func rowsOf(v any) []datastore.Row {
	rows, _ := v.([]datastore.Row)
	return rows
}

func (s *DocumentService) audit(ctx context.Context, tenant datastore.Tenant, action, entityType, entityID string, snapshot map[string]any) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode audit snapshot: %w", err)
	}
	_, err = s.store.Insert(ctx, tenant, models.CollectionAuditLogs, datastore.Row{
		"action":      action,
		"entity_type": entityType,
		"entity_id":   entityID,
		"snapshot":    datatypes.JSON(b),
	})
	if err != nil {
		return translate(err)
	}
	return nil
}
