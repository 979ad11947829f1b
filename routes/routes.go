package routes

import (
	"time"

	"bizdesk-backend/cache"
	"bizdesk-backend/config"
	"bizdesk-backend/controllers"
	"bizdesk-backend/datastore"
	"bizdesk-backend/services"
	"bizdesk-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the handlers need.
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Store   datastore.Store
	Cache   *cache.QueryCache
	Docs    *services.DocumentService
	Ledger  *services.StockLedger
	Reports *services.ReportService
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger(d.Log))

	expiry := time.Duration(d.Config.JWTExpiryHours) * time.Hour
	authMiddleware := utils.AuthMiddleware(d.Config.JWTSecret)

	authController := controllers.AuthController{
		DB:             d.DB,
		Secret:         d.Config.JWTSecret,
		Expiry:         expiry,
		DefaultTaxRate: d.Config.DefaultTaxRate,
		Log:            d.Log,
	}
	profileController := controllers.ProfileController{DB: d.DB}

	auth := r.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)

		auth.Use(authMiddleware)
		auth.GET("/me", authController.Me)
		auth.GET("/profile", profileController.GetProfile)
		auth.PUT("/profile", profileController.UpdateCompany)
	}

	api := r.Group("/api")
	api.Use(authMiddleware)
	{
		// Customer routes
		customerController := controllers.CustomerController{Store: d.Store, Cache: d.Cache}
		customers := api.Group("/customers")
		{
			customers.POST("", customerController.CreateCustomer)
			customers.GET("", customerController.GetCustomers)
			customers.GET("/:id", customerController.GetCustomer)
			customers.PUT("/:id", customerController.UpdateCustomer)
			customers.DELETE("/:id", customerController.DeleteCustomer)
		}

		// Product and stock routes
		productController := controllers.ProductController{Store: d.Store, Ledger: d.Ledger, Cache: d.Cache}
		products := api.Group("/products")
		{
			products.POST("", productController.CreateProduct)
			products.GET("", productController.GetProducts)
			products.GET("/:id", productController.GetProduct)
			products.PUT("/:id", productController.UpdateProduct)
			products.DELETE("/:id", productController.DeleteProduct)
			products.POST("/:id/adjust", productController.AdjustStock)
		}
		api.GET("/stock-movements", productController.GetStockMovements)

		// Document routes
		quotations := documentRoutes(api.Group("/quotations"), &controllers.DocumentController{Kind: services.Quotation, Docs: d.Docs, Cache: d.Cache})
		quotations.POST("/:id/convert", quotations.controller.Convert)

		documentRoutes(api.Group("/invoices"), &controllers.DocumentController{Kind: services.Invoice, Docs: d.Docs, Cache: d.Cache})

		creditNotes := documentRoutes(api.Group("/credit-notes"), &controllers.DocumentController{Kind: services.CreditNote, Docs: d.Docs, Cache: d.Cache})
		creditNotes.POST("/:id/apply", creditNotes.controller.ApplyCredit)

		pricingController := controllers.PricingController{DefaultTaxRate: d.Config.DefaultTaxRate}
		api.POST("/pricing/preview", pricingController.Preview)

		// Reports routes
		reportController := controllers.ReportController{Reports: d.Reports, Cache: d.Cache}
		api.GET("/reports/summary", reportController.GetSummary)

		// Dashboard routes
		dashboardController := controllers.DashboardController{Store: d.Store}
		api.GET("/dashboard", dashboardController.GetOverview)
	}

	return r
}

type documentGroup struct {
	*gin.RouterGroup
	controller *controllers.DocumentController
}

func documentRoutes(g *gin.RouterGroup, dc *controllers.DocumentController) documentGroup {
	g.POST("", dc.Create)
	g.GET("", dc.List)
	g.GET("/:id", dc.Get)
	g.PUT("/:id", dc.Update)
	g.DELETE("/:id", dc.Delete)
	return documentGroup{RouterGroup: g, controller: dc}
}
