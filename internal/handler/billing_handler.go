package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/billing"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/repository"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/tenancy"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
	"github.com/smartflow-systems/sfs-white-label-dashboard/prometheus"
)

// BillingHandler serves subscription plans, checkout, the customer portal,
// usage reporting, invoices and the payment provider's webhook
type BillingHandler struct {
	db     *gorm.DB
	stripe *billing.Stripe
}

// NewBillingHandler creates a BillingHandler
func NewBillingHandler(db *gorm.DB, stripe *billing.Stripe) *BillingHandler {
	return &BillingHandler{db: db, stripe: stripe}
}

// Plans returns all public, active subscription plans
func (h *BillingHandler) Plans(c echo.Context) error {
	log := logger.FromEcho(c)

	var plans []model.SubscriptionPlan
	err := h.db.Where("is_active = ? AND is_public = ?", true, true).
		Order("sort_order ASC").
		Find(&plans).Error
	if err != nil {
		log.Error("Failed to fetch plans", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch plans"})
	}

	return c.JSON(http.StatusOK, plans)
}

// Current returns the resolved tenant's subscription details
func (h *BillingHandler) Current(c echo.Context) error {
	log := logger.FromEcho(c)

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenancy.TenantID(c)).First(&tenant).Error; err != nil {
		log.Error("Tenant not found", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	var plan *model.SubscriptionPlan
	var found model.SubscriptionPlan
	if err := h.db.Where("slug = ?", tenant.SubscriptionTier).First(&found).Error; err == nil {
		plan = &found
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tier":   tenant.SubscriptionTier,
		"status": tenant.SubscriptionStatus,
		"plan":   plan,
		"limits": echo.Map{
			"max_users":      tenant.MaxUsers,
			"max_clients":    tenant.MaxClients,
			"max_storage_gb": tenant.MaxStorageGB,
		},
		"features": tenant.EnabledFeatures,
	})
}

// CreateCheckoutSession starts a provider checkout for a plan upgrade. The
// tenant is registered as a provider customer on first use.
func (h *BillingHandler) CreateCheckoutSession(c echo.Context) error {
	log := logger.FromEcho(c)

	if !h.stripe.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error":   "Stripe not configured",
			"message": "Please configure STRIPE_SECRET_KEY in environment variables",
		})
	}

	var req struct {
		PlanSlug     string `json:"plan_slug"`
		BillingCycle string `json:"billing_cycle"` // "monthly" or "yearly"
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.PlanSlug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan_slug is required"})
	}

	var plan model.SubscriptionPlan
	if err := h.db.Where("slug = ?", req.PlanSlug).First(&plan).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Plan not found"})
	}

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenancy.TenantID(c)).First(&tenant).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	customerID := tenant.StripeCustomerID
	if customerID == "" {
		customer, err := h.stripe.CreateCustomer(tenant.CompanyEmail, tenant.Name, map[string]string{
			"tenant_id":   tenant.ID,
			"tenant_name": tenant.Name,
		})
		if err != nil {
			log.Error("Failed to create Stripe customer", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create checkout session"})
		}
		customerID = customer.ID

		if err := h.db.Model(&model.Tenant{}).
			Where("id = ?", tenant.ID).
			Update("stripe_customer_id", customerID).Error; err != nil {
			log.Error("Failed to store customer id", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create checkout session"})
		}
	}

	priceID := plan.StripePriceIDMonthly
	if req.BillingCycle == "yearly" {
		priceID = plan.StripePriceIDYearly
	}
	if priceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "Invalid billing cycle",
			"message": req.BillingCycle + " billing not available for this plan",
		})
	}

	session, err := h.stripe.CreateCheckoutSession(billing.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		TenantID:   tenant.ID,
		PlanSlug:   plan.Slug,
	})
	if err != nil {
		log.Error("Failed to create checkout session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create checkout session"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"session_id": session.ID,
		"url":        session.URL,
	})
}

// CreatePortalSession opens the provider's billing portal for the tenant
func (h *BillingHandler) CreatePortalSession(c echo.Context) error {
	log := logger.FromEcho(c)

	if !h.stripe.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Stripe not configured"})
	}

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenancy.TenantID(c)).First(&tenant).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	if tenant.StripeCustomerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "No Stripe customer found",
			"message": "Please subscribe to a plan first",
		})
	}

	session, err := h.stripe.CreatePortalSession(tenant.StripeCustomerID)
	if err != nil {
		log.Error("Failed to create portal session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create portal session"})
	}

	return c.JSON(http.StatusOK, echo.Map{"url": session.URL})
}

// Usage returns current usage against the tenant's limits
func (h *BillingHandler) Usage(c echo.Context) error {
	log := logger.FromEcho(c)

	tenantID := tenancy.TenantID(c)
	scoped := repository.ForTenant(h.db, tenantID)

	userCount, err := scoped.CountUsers()
	if err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "usage unavailable"})
	}
	clientCount, err := scoped.CountClients()
	if err != nil {
		log.Error("Failed to count clients", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "usage unavailable"})
	}

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":   usageEntry(userCount, tenant.MaxUsers),
		"clients": usageEntry(clientCount, tenant.MaxClients),
		"storage": echo.Map{
			// Storage tracking is not implemented; reported as zero
			"current":    0,
			"max":        tenant.MaxStorageGB,
			"percentage": 0,
			"unit":       "GB",
		},
	})
}

// Invoices returns the tenant's invoice history from the payment provider
func (h *BillingHandler) Invoices(c echo.Context) error {
	log := logger.FromEcho(c)

	if !h.stripe.Enabled() {
		return c.JSON(http.StatusOK, []echo.Map{})
	}

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenancy.TenantID(c)).First(&tenant).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	if tenant.StripeCustomerID == "" {
		return c.JSON(http.StatusOK, []echo.Map{})
	}

	invoices, err := h.stripe.ListInvoices(tenant.StripeCustomerID, 12)
	if err != nil {
		log.Error("Failed to fetch invoices", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch invoices"})
	}

	formatted := make([]echo.Map, 0, len(invoices))
	for _, invoice := range invoices {
		formatted = append(formatted, echo.Map{
			"id":                 invoice.ID,
			"amount":             invoice.AmountPaid,
			"currency":           invoice.Currency,
			"status":             invoice.Status,
			"created":            invoice.Created,
			"invoice_pdf":        invoice.InvoicePDF,
			"hosted_invoice_url": invoice.HostedInvoiceURL,
			"number":             invoice.Number,
		})
	}

	return c.JSON(http.StatusOK, formatted)
}

// CancelSubscription flags the tenant's subscription to lapse at period end
func (h *BillingHandler) CancelSubscription(c echo.Context) error {
	log := logger.FromEcho(c)

	if !h.stripe.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Stripe not configured"})
	}

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenancy.TenantID(c)).First(&tenant).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	if tenant.StripeSubscriptionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No active subscription"})
	}

	if _, err := h.stripe.CancelAtPeriodEnd(tenant.StripeSubscriptionID); err != nil {
		log.Error("Failed to cancel subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel subscription"})
	}

	logActivity(c, h.db, "subscription.cancel_requested", "subscription", tenant.StripeSubscriptionID, nil)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Subscription will be canceled at the end of the billing period",
	})
}

// Webhook processes payment provider events. The raw body is verified
// against the webhook signature before anything is parsed.
func (h *BillingHandler) Webhook(c echo.Context) error {
	log := logger.FromEcho(c)

	if !h.stripe.Enabled() {
		return c.String(http.StatusServiceUnavailable, "Stripe not configured")
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.Error("Failed to read webhook payload", zap.Error(err))
		return c.String(http.StatusBadRequest, "invalid payload")
	}

	event, err := h.stripe.ConstructWebhookEvent(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		log.Error("Webhook signature verification failed", zap.Error(err))
		return c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
	}

	prometheus.RecordWebhookEvent(string(event.Type))

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(event)
	case "customer.subscription.updated":
		err = h.handleSubscriptionUpdated(event)
	case "customer.subscription.deleted":
		err = h.handleSubscriptionDeleted(event)
	case "invoice.payment_failed":
		err = h.handlePaymentFailed(event)
	default:
		log.Debug("Unhandled webhook event type", zap.String("type", string(event.Type)))
	}
	if err != nil {
		log.Error("Webhook processing failed", zap.String("type", string(event.Type)), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// handleCheckoutCompleted applies a purchased plan to the tenant named in
// the session metadata
func (h *BillingHandler) handleCheckoutCompleted(event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}

	tenantID := session.Metadata["tenant_id"]
	planSlug := session.Metadata["plan_slug"]

	var plan model.SubscriptionPlan
	if err := h.db.Where("slug = ?", planSlug).First(&plan).Error; err != nil {
		return err
	}

	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	// Updating through the model keeps the serializer on enabled_features
	// in play; map updates would write the slice raw
	err := h.db.Model(&model.Tenant{}).Where("id = ?", tenantID).
		Select("subscription_tier", "subscription_status", "stripe_subscription_id",
			"max_users", "max_clients", "max_storage_gb", "enabled_features", "updated_at").
		Updates(model.Tenant{
			SubscriptionTier:     planSlug,
			SubscriptionStatus:   model.StatusActive,
			StripeSubscriptionID: subscriptionID,
			MaxUsers:             plan.MaxUsers,
			MaxClients:           plan.MaxClients,
			MaxStorageGB:         plan.MaxStorageGB,
			EnabledFeatures:      plan.Features,
			UpdatedAt:            time.Now(),
		}).Error
	if err != nil {
		return err
	}

	return repository.ForTenant(h.db, tenantID).LogActivity(&model.ActivityLog{
		Action:     "subscription.upgraded",
		Resource:   "subscription",
		ResourceID: subscriptionID,
		Details:    map[string]interface{}{"plan": planSlug},
	})
}

// handleSubscriptionUpdated mirrors the provider's subscription status onto
// the owning tenant
func (h *BillingHandler) handleSubscriptionUpdated(event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return err
	}
	if subscription.Customer == nil {
		return nil
	}

	tenant, err := h.tenantByCustomer(subscription.Customer.ID)
	if err != nil || tenant == nil {
		return err
	}

	updates := model.Tenant{
		SubscriptionStatus: string(subscription.Status),
		UpdatedAt:          time.Now(),
	}
	columns := []string{"subscription_status", "updated_at"}

	// A plan change shows up as a new price on the subscription; map it back
	// to a tier through the plans table
	if subscription.Items != nil && len(subscription.Items.Data) > 0 && subscription.Items.Data[0].Price != nil {
		plan, err := h.planForPriceID(subscription.Items.Data[0].Price.ID)
		if err != nil {
			return err
		}
		if plan != nil {
			updates.SubscriptionTier = plan.Slug
			updates.MaxUsers = plan.MaxUsers
			updates.MaxClients = plan.MaxClients
			updates.MaxStorageGB = plan.MaxStorageGB
			updates.EnabledFeatures = plan.Features
			columns = append(columns,
				"subscription_tier", "max_users", "max_clients", "max_storage_gb", "enabled_features")
		}
	}

	return h.db.Model(&model.Tenant{}).Where("id = ?", tenant.ID).
		Select(columns).
		Updates(updates).Error
}

// handleSubscriptionDeleted downgrades the owning tenant to the free tier
func (h *BillingHandler) handleSubscriptionDeleted(event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return err
	}
	if subscription.Customer == nil {
		return nil
	}

	tenant, err := h.tenantByCustomer(subscription.Customer.ID)
	if err != nil || tenant == nil {
		return err
	}

	// The explicit Select forces the zero-valued stripe_subscription_id
	// through; struct updates would otherwise skip it
	return h.db.Model(&model.Tenant{}).Where("id = ?", tenant.ID).
		Select("subscription_tier", "subscription_status", "stripe_subscription_id",
			"max_users", "max_clients", "max_storage_gb", "enabled_features", "updated_at").
		Updates(model.Tenant{
			SubscriptionTier:   model.TierFree,
			SubscriptionStatus: model.StatusCanceled,
			MaxUsers:           model.DefaultMaxUsers,
			MaxClients:         model.DefaultMaxClients,
			MaxStorageGB:       model.DefaultMaxStorageGB,
			EnabledFeatures:    model.DefaultFeatures(),
			UpdatedAt:          time.Now(),
		}).Error
}

// handlePaymentFailed marks the owning tenant past due; the resolver rejects
// past-due tenants on their next request
func (h *BillingHandler) handlePaymentFailed(event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}
	if invoice.Customer == nil {
		return nil
	}

	tenant, err := h.tenantByCustomer(invoice.Customer.ID)
	if err != nil || tenant == nil {
		return err
	}

	return h.db.Model(&model.Tenant{}).Where("id = ?", tenant.ID).Updates(map[string]interface{}{
		"subscription_status": model.StatusPastDue,
		"updated_at":          time.Now(),
	}).Error
}

// planForPriceID finds the plan selling the given provider price, monthly or
// yearly, nil on miss
func (h *BillingHandler) planForPriceID(priceID string) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := h.db.Where("stripe_price_id_monthly = ? OR stripe_price_id_yearly = ?", priceID, priceID).
		First(&plan).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// tenantByCustomer finds a tenant by its provider customer id, nil on miss
func (h *BillingHandler) tenantByCustomer(customerID string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := h.db.Where("stripe_customer_id = ?", customerID).First(&tenant).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}
