package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/notify"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TenantLister returns every company the job should look at.
type TenantLister func(ctx context.Context) ([]datastore.Tenant, error)

// Drift is a product whose recorded stock disagrees with its ledger.
type Drift struct {
	ProductID string
	Name      string
	Recorded  float64
	Ledger    float64
}

// ReconcileService compares products.stock_quantity with the movement
// ledger on a schedule. It only reads; drift is reported, never repaired.
type ReconcileService struct {
	store    datastore.Store
	tenants  TenantLister
	notifier notify.Notifier
	log      *zap.Logger
	cron     *cron.Cron
}

func NewReconcileService(store datastore.Store, tenants TenantLister, notifier notify.Notifier, log *zap.Logger) *ReconcileService {
	return &ReconcileService{store: store, tenants: tenants, notifier: notifier, log: log}
}

// Start runs RunAll on schedule, a standard five-field cron spec.
func (s *ReconcileService) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.RunAll(context.Background()) }); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("stock reconciliation scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop waits for a running job to finish.
func (s *ReconcileService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *ReconcileService) RunAll(ctx context.Context) {
	tenants, err := s.tenants(ctx)
	if err != nil {
		s.log.Error("failed to list companies", zap.Error(err))
		return
	}
	for _, t := range tenants {
		if _, err := s.Reconcile(ctx, t); err != nil {
			s.log.Error("stock reconciliation failed", zap.String("tenant", string(t)), zap.Error(err))
		}
	}
}

// Reconcile checks one company and sends a single warning listing every
// drifting product.
func (s *ReconcileService) Reconcile(ctx context.Context, tenant datastore.Tenant) ([]Drift, error) {
	products, err := s.store.Select(ctx, tenant, models.CollectionProducts, nil, datastore.OrderBy("name", false))
	if err != nil {
		return nil, translate(err)
	}
	movements, err := s.store.Select(ctx, tenant, models.CollectionStockMovements, nil)
	if err != nil {
		return nil, translate(err)
	}
	ledger := LedgerQuantities(movements)

	var drifts []Drift
	for _, p := range products {
		recorded, expected := p.Float("stock_quantity"), ledger[p.String("id")]
		if math.Abs(recorded-expected) > 1e-6 {
			drifts = append(drifts, Drift{
				ProductID: p.String("id"),
				Name:      p.String("name"),
				Recorded:  recorded,
				Ledger:    expected,
			})
		}
	}
	if len(drifts) == 0 {
		s.log.Debug("stock in sync", zap.String("tenant", string(tenant)), zap.Int("products", len(products)))
		return nil, nil
	}

	parts := make([]string, len(drifts))
	for i, d := range drifts {
		parts[i] = fmt.Sprintf("%s recorded %g, ledger %g", d.Name, d.Recorded, d.Ledger)
	}
	s.notifier.Notify(ctx, notify.Notification{
		Level:   notify.LevelWarning,
		Tenant:  string(tenant),
		Title:   "Stock out of sync",
		Message: strings.Join(parts, "; "),
	})
	return drifts, nil
}
