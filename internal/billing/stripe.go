package billing

import (
	"math"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/config"
)

// Stripe wraps the payment provider client. The provider is treated as a
// black box: calls either return its session/subscription/customer objects or
// fail. When no secret key is configured the wrapper stays disabled and
// billing endpoints degrade with an explicit "not configured" response.
type Stripe struct {
	api *client.API
	cfg *config.StripeConfig
}

// New creates the Stripe wrapper from configuration
func New(cfg *config.StripeConfig) *Stripe {
	s := &Stripe{cfg: cfg}
	if cfg.SecretKey != "" {
		sc := &client.API{}
		sc.Init(cfg.SecretKey, nil)
		s.api = sc
	}
	return s
}

// Enabled reports whether a secret key was configured
func (s *Stripe) Enabled() bool {
	return s.api != nil
}

// CheckoutParams carries everything needed to start a subscription checkout
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	TenantID   string
	PlanSlug   string
}

// CreateCheckoutSession starts a subscription checkout for a tenant. The
// tenant id and plan slug travel in the session metadata so the webhook can
// apply the purchase to the right account.
func (s *Stripe) CreateCheckoutSession(p CheckoutParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(p.CustomerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.ClientURL + "/settings?billing=success"),
		CancelURL:  stripe.String(s.cfg.ClientURL + "/settings?billing=canceled"),
	}
	params.AddMetadata("tenant_id", p.TenantID)
	params.AddMetadata("plan_slug", p.PlanSlug)

	return s.api.CheckoutSessions.New(params)
}

// CreatePortalSession opens the provider's self-service billing portal
func (s *Stripe) CreatePortalSession(customerID string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.cfg.ClientURL + "/settings"),
	}
	return s.api.BillingPortalSessions.New(params)
}

// GetSubscription retrieves subscription details
func (s *Stripe) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	return s.api.Subscriptions.Get(subscriptionID, nil)
}

// CancelAtPeriodEnd flags the subscription to lapse at the end of the current
// billing period rather than immediately
func (s *Stripe) CancelAtPeriodEnd(subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	return s.api.Subscriptions.Update(subscriptionID, params)
}

// CreateCustomer registers a tenant as a provider customer
func (s *Stripe) CreateCustomer(email, name string, metadata map[string]string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	return s.api.Customers.New(params)
}

// ListInvoices returns up to limit invoices for a customer, newest first
func (s *Stripe) ListInvoices(customerID string, limit int64) ([]*stripe.Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Limit = stripe.Int64(limit)

	var invoices []*stripe.Invoice
	iter := s.api.Invoices.List(params)
	for iter.Next() {
		invoices = append(invoices, iter.Invoice())
	}
	return invoices, iter.Err()
}

// ConstructWebhookEvent verifies the webhook signature and parses the event.
// An invalid signature fails the call.
func (s *Stripe) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
}

// ReferralCommission computes the commission owed on a payment, in cents,
// rounding down
func ReferralCommission(amountCents int64, rate float64) int64 {
	return int64(math.Floor(float64(amountCents) * rate))
}
