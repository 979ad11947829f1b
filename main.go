package main

import (
	"context"
	"fmt"
	"log"

	"bizdesk-backend/cache"
	"bizdesk-backend/config"
	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/notify"
	"bizdesk-backend/routes"
	"bizdesk-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.ConnectDB(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	var store datastore.Store
	if cfg.DBDriver == "memory" {
		store = models.NewMemoryStore()
	} else {
		store = models.NewStore(db)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.SMSEnabled() {
		sms := notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.NotifySMSTo, logger)
		defer sms.Close()
		notifier = notify.Multi(notifier, sms)
		logger.Info("sms notifications enabled", zap.String("to", cfg.NotifySMSTo))
	}

	queryCache := cache.NewQueryCache(cfg.CacheTTL)
	docs := services.NewDocumentService(store, notifier, queryCache, logger)

	reconciler := services.NewReconcileService(store, companyLister(db), notifier, logger)
	if cfg.ReconcileSchedule != "" && cfg.ReconcileSchedule != "off" {
		if err := reconciler.Start(cfg.ReconcileSchedule); err != nil {
			logger.Fatal("failed to schedule reconciliation", zap.Error(err))
		}
		defer reconciler.Stop()
	}

	r := routes.SetupRouter(routes.Deps{
		Config:  cfg,
		Log:     logger,
		DB:      db,
		Store:   store,
		Cache:   queryCache,
		Docs:    docs,
		Ledger:  services.NewStockLedger(store),
		Reports: services.NewReportService(store),
	})
	printRoutes(r)

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("driver", cfg.DBDriver))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

// companyLister returns every company id; companies always live in gorm.
func companyLister(db *gorm.DB) services.TenantLister {
	return func(ctx context.Context) ([]datastore.Tenant, error) {
		var ids []string
		if err := db.WithContext(ctx).Model(&models.Company{}).Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		tenants := make([]datastore.Tenant, len(ids))
		for i, id := range ids {
			tenants[i] = datastore.Tenant(id)
		}
		return tenants, nil
	}
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
