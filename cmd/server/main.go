package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomid "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/billing"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/handler"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/middleware"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/repository"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/tenancy"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/config"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/database"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/jwtutil"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
	"github.com/smartflow-systems/sfs-white-label-dashboard/prometheus"
)

func main() {
	// Load .env file; missing files are fine, production sets env vars directly
	_ = godotenv.Load()

	appConfig, err := config.Load()
	if err != nil {
		// Can't use the structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting sfs-white-label-dashboard", appConfig.LogFields()...)

	db, err := database.Init(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	err = database.Migrate(db,
		&model.Tenant{},
		&model.User{},
		&model.Client{},
		&model.ApiConnection{},
		&model.DashboardWidget{},
		&model.ActivityLog{},
		&model.SubscriptionPlan{},
		&model.Referral{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database migrations complete")

	var activeTenants int64
	if err := db.Model(&model.Tenant{}).
		Where("is_active = ? AND is_suspended = ?", true, false).
		Count(&activeTenants).Error; err == nil {
		prometheus.UpdateActiveTenants(activeTenants)
	}

	jwtUtil := jwtutil.New(&appConfig.JWT)
	stripe := billing.New(&appConfig.Stripe)
	if stripe.Enabled() {
		log.Info("Stripe billing enabled")
	} else {
		log.Warn("Stripe not configured, billing endpoints will return 503")
	}

	usage := repository.Usage(db)
	resolver := tenancy.NewResolver(db, appConfig.Server.Env)

	authHandler := handler.NewAuthHandler(db, jwtUtil)
	tenantHandler := handler.NewTenantHandler(db)
	clientHandler := handler.NewClientHandler(db)
	connectionHandler := handler.NewConnectionHandler(db)
	widgetHandler := handler.NewWidgetHandler(db)
	activityHandler := handler.NewActivityHandler(db)
	billingHandler := handler.NewBillingHandler(db, stripe)
	referralHandler := handler.NewReferralHandler(db, &appConfig.Referral)

	e := echo.New()
	e.HideBanner = true

	e.Use(echomid.Recover())
	e.Use(echomid.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())
	e.Use(resolver.Middleware())

	// Public endpoints; no tenant context required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/api/tenants/register", tenantHandler.Register)
	e.GET("/api/tenants/check-subdomain/:subdomain", tenantHandler.CheckSubdomain)
	e.GET("/api/billing/plans", billingHandler.Plans)
	e.POST("/api/billing/webhook", billingHandler.Webhook)

	// Login needs the tenant resolved so user lookup is scoped correctly
	e.POST("/api/auth/login", authHandler.Login, tenancy.RequireTenant)

	// Everything below requires both a resolved tenant and an authenticated user
	auth := middleware.Auth(jwtUtil)

	// Registration and subdomain checks above stay public; the rest of the
	// tenants surface is guarded per-route
	e.GET("/api/tenants/current", tenantHandler.Current, tenancy.RequireTenant, auth)
	e.PATCH("/api/tenants/current", tenantHandler.UpdateCurrent, tenancy.RequireTenant, auth)
	e.GET("/api/tenants/stats", tenantHandler.Stats, tenancy.RequireTenant, auth)

	clientAPI := e.Group("/api/clients", tenancy.RequireTenant, auth)
	clientAPI.GET("", clientHandler.List)
	clientAPI.GET("/stats/summary", clientHandler.StatsSummary)
	clientAPI.GET("/:id", clientHandler.Get)
	clientAPI.POST("", clientHandler.Create, tenancy.CheckUsageLimit("clients", usage))
	clientAPI.PATCH("/:id", clientHandler.Update)
	clientAPI.DELETE("/:id", clientHandler.Delete)

	connectionAPI := e.Group("/api/connections", tenancy.RequireTenant, auth)
	connectionAPI.GET("", connectionHandler.List)
	connectionAPI.GET("/:id", connectionHandler.Get)
	connectionAPI.POST("", connectionHandler.Create, tenancy.RequireFeature("api_connections"))
	connectionAPI.PATCH("/:id", connectionHandler.Update)
	connectionAPI.DELETE("/:id", connectionHandler.Delete)

	widgetAPI := e.Group("/api/widgets", tenancy.RequireTenant, auth)
	widgetAPI.GET("", widgetHandler.List)
	widgetAPI.GET("/:id", widgetHandler.Get)
	widgetAPI.POST("", widgetHandler.Create)
	widgetAPI.PATCH("/:id", widgetHandler.Update)
	widgetAPI.DELETE("/:id", widgetHandler.Delete)

	activityAPI := e.Group("/api/activity", tenancy.RequireTenant, auth)
	activityAPI.GET("", activityHandler.List)

	billingAPI := e.Group("/api/billing", tenancy.RequireTenant, auth)
	billingAPI.GET("/current", billingHandler.Current)
	billingAPI.GET("/usage", billingHandler.Usage)
	billingAPI.GET("/invoices", billingHandler.Invoices)
	billingAPI.POST("/checkout", billingHandler.CreateCheckoutSession)
	billingAPI.POST("/portal", billingHandler.CreatePortalSession)
	billingAPI.POST("/cancel", billingHandler.CancelSubscription)

	referralAPI := e.Group("/api/referrals", tenancy.RequireTenant, auth, tenancy.RequireTier(model.TierStarter))
	referralAPI.GET("", referralHandler.List)
	referralAPI.POST("", referralHandler.Create)
	referralAPI.POST("/:id/convert", referralHandler.Convert)

	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
