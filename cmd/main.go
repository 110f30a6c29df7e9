package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercaplaza/internal/caching"
	"mercaplaza/internal/common"
	"mercaplaza/internal/events"
	"mercaplaza/internal/handlers"
	"mercaplaza/internal/jobs"
	"mercaplaza/internal/jobs/background"
	"mercaplaza/internal/middleware"
	"mercaplaza/internal/models"
	"mercaplaza/internal/repositories"
	"mercaplaza/internal/services"
	"mercaplaza/pkg/database"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret")
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// MinIO configuration
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	minioBucket := os.Getenv("MINIO_INVOICE_BUCKET")
	if minioBucket == "" {
		minioBucket = "invoices"
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	archiver, err := services.NewMinioArchiver(minioEndpoint, minioAccessKey, minioSecretKey, minioBucket, useSSL)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO archiver: %v", err)
	}
	bucketCtx, bucketCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := archiver.EnsureBucketExists(bucketCtx); err != nil {
		log.Printf("WARN: invoice bucket not reachable: %v", err)
	}
	bucketCancel()

	// RabbitMQ seller notifications, optional
	var notifier services.SellerNotifier
	if rabbitURL := os.Getenv("RABBITMQ_URL"); rabbitURL != "" {
		rabbitNotifier, err := services.NewRabbitNotifier(rabbitURL)
		if err != nil {
			log.Printf("WARN: RabbitMQ unavailable, seller notifications disabled: %v", err)
		} else {
			notifier = rabbitNotifier
		}
	}

	// Create repositories
	productRepo := repositories.NewProductRepo(pool)
	orderRepo := repositories.NewOrderRepo(pool)
	orderItemRepo := repositories.NewOrderItemRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	configRepo := repositories.NewPlatformConfigRepo(pool)

	// Create services
	configSvc := services.NewConfigService(configRepo, services.DefaultConfigCacheTTL)
	productSvc := services.NewProductService(productRepo, cacheSvc)
	orderSvc := services.NewOrderService(pool, orderRepo, orderItemRepo, productRepo, configSvc, cacheSvc, notifier, nil)

	bus := events.NewBus()
	statusSvc := services.NewOrderStatusService(pool, orderRepo, orderItemRepo, productRepo, bus)

	platformParty := models.Party{
		Name:     getenvDefault("PLATFORM_LEGAL_NAME", "MercaPlaza S.A.S."),
		Document: os.Getenv("PLATFORM_TAX_ID"),
		Address:  os.Getenv("PLATFORM_ADDRESS"),
		Email:    os.Getenv("PLATFORM_BILLING_EMAIL"),
	}
	invoiceSvc := services.NewInvoiceService(pool, invoiceRepo, orderRepo, configSvc, cacheSvc, nil, archiver, platformParty)

	// Settlement events drive invoice issuance
	bus.Subscribe(events.TopicOrderDelivered, invoiceSvc.OnOrderDelivered)
	bus.Subscribe(events.TopicOrderCancelled, invoiceSvc.OnOrderCancelled)

	// Reconciliation auditor
	reconConfig := jobs.DefaultReconciliationConfig()
	if tolStr := os.Getenv("RECON_DRIFT_TOLERANCE"); tolStr != "" {
		if tol, err := strconv.ParseFloat(tolStr, 64); err == nil {
			reconConfig.DriftTolerance = tol
		}
	}
	if graceStr := os.Getenv("RECON_SETTLEMENT_GRACE"); graceStr != "" {
		if grace, err := time.ParseDuration(graceStr); err == nil {
			reconConfig.SettlementGrace = grace
		}
	}
	if windowStr := os.Getenv("RECON_WINDOW"); windowStr != "" {
		if window, err := time.ParseDuration(windowStr); err == nil {
			reconConfig.Window = window
		}
	}
	reconSvc := jobs.NewReconciliationService(orderRepo, orderItemRepo, invoiceRepo, reconConfig)

	scheduler := background.NewJobScheduler(reconSvc)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Create handlers
	orderHandlers := handlers.NewOrderHandlers(orderSvc, statusSvc)
	productHandlers := handlers.NewProductHandlers(productSvc)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc)
	configHandlers := handlers.NewConfigHandlers(configSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, archiver)

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.PrometheusMiddleware())

	// Health and metrics endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public rate reads and guest checkout
	e.GET("/config/seller-commission-rate", configHandlers.GetCommissionRate)
	e.GET("/config/buyer-platform-fee-rate", configHandlers.GetPlatformFeeRate)
	e.GET("/products/:id", productHandlers.GetProduct)
	e.POST("/orders", orderHandlers.CreateOrder)

	// Protected routes (require JWT)
	protected := e.Group("")
	protected.Use(middleware.JWTMiddleware(jwtSecret))

	protected.GET("/orders", orderHandlers.ListOrders)
	protected.GET("/orders/:id", orderHandlers.GetOrder)
	protected.GET("/orders/number/:orderNumber", orderHandlers.GetOrderByNumber)
	protected.PATCH("/orders/:id/status", orderHandlers.UpdateOrderStatus,
		middleware.RequireRole(common.RoleAdmin, common.RoleSeller))

	protected.POST("/products", productHandlers.CreateProduct,
		middleware.RequireRole(common.RoleAdmin, common.RoleSeller))
	protected.PUT("/products/:id", productHandlers.UpdateProduct,
		middleware.RequireRole(common.RoleAdmin, common.RoleSeller))

	protected.GET("/invoicing", invoiceHandlers.ListInvoices)
	protected.GET("/invoicing/:id", invoiceHandlers.GetInvoice)
	protected.GET("/invoicing/:id/pdf", invoiceHandlers.GetInvoicePDF)
	protected.PUT("/invoicing/:id/mark-paid", invoiceHandlers.MarkInvoicePaid, middleware.RequireAdmin())
	protected.PUT("/invoicing/:id/cancel", invoiceHandlers.CancelInvoice, middleware.RequireAdmin())

	// Config administration
	admin := protected.Group("/config", middleware.RequireAdmin())
	admin.GET("", configHandlers.ListConfig)
	admin.GET("/:key", configHandlers.GetConfig)
	admin.POST("", configHandlers.CreateConfig)
	admin.PUT("/:key", configHandlers.UpdateConfig)
	admin.DELETE("/:key", configHandlers.DeleteConfig)

	// Start server
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("MercaPlaza commission engine v%s starting on port %d", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
