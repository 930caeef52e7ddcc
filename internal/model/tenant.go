package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription tiers, from lowest to highest.
const (
	TierFree       = "free"
	TierStarter    = "starter"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// Subscription statuses.
const (
	StatusTrial    = "trial"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Default resource limits for freshly registered (free tier) tenants.
const (
	DefaultMaxUsers     = 3
	DefaultMaxClients   = 10
	DefaultMaxStorageGB = 1
)

// DefaultFeatures are the features every free-tier tenant starts with.
func DefaultFeatures() []string {
	return []string{"dashboard", "basic_analytics"}
}

// Tenant represents an isolated organizational account. Tenants own users,
// clients, connections and widgets; every other row in the schema carries a
// tenant id back to one of these. Tenants are never hard-deleted, only
// deactivated or suspended.
type Tenant struct {
	ID               string  `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string  `json:"name" gorm:"type:varchar(100);not null"`
	Subdomain        string  `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	CustomDomain     *string `json:"custom_domain,omitempty" gorm:"type:varchar(253);uniqueIndex"`
	Logo             string  `json:"logo,omitempty" gorm:"type:text"`
	PrimaryColor     string  `json:"primary_color,omitempty" gorm:"type:varchar(7)"`
	SecondaryColor   string  `json:"secondary_color,omitempty" gorm:"type:varchar(7)"`
	AccentColor      string  `json:"accent_color,omitempty" gorm:"type:varchar(7)"`
	CompanyEmail     string  `json:"company_email,omitempty" gorm:"type:varchar(255)"`
	CompanyPhone     string  `json:"company_phone,omitempty" gorm:"type:varchar(50)"`
	CompanyAddress   string  `json:"company_address,omitempty" gorm:"type:text"`
	SubscriptionTier string  `json:"subscription_tier" gorm:"type:varchar(20);not null;default:'free'"`
	// trial, active, past_due or canceled
	SubscriptionStatus   string         `json:"subscription_status" gorm:"type:varchar(20);not null;default:'trial'"`
	StripeCustomerID     string         `json:"-" gorm:"type:varchar(255);index"`
	StripeSubscriptionID string         `json:"-" gorm:"type:varchar(255)"`
	MaxUsers             int            `json:"max_users" gorm:"default:3"`
	MaxClients           int            `json:"max_clients" gorm:"default:10"`
	MaxStorageGB         int            `json:"max_storage_gb" gorm:"default:1"`
	EnabledFeatures      []string       `json:"enabled_features" gorm:"serializer:json"`
	IsActive             bool           `json:"is_active" gorm:"default:true"`
	IsSuspended          bool           `json:"is_suspended" gorm:"default:false"`
	SuspensionReason     string         `json:"suspension_reason,omitempty" gorm:"type:text"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// HasFeature reports whether the feature is enabled for this tenant
func (t *Tenant) HasFeature(name string) bool {
	for _, f := range t.EnabledFeatures {
		if f == name {
			return true
		}
	}
	return false
}
