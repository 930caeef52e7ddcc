package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionPlan is a purchasable tier definition. Plans carry the Stripe
// price ids and the limits/features that get copied onto a tenant when its
// subscription changes.
type SubscriptionPlan struct {
	ID                   string         `json:"id" gorm:"type:uuid;primaryKey"`
	Slug                 string         `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name                 string         `json:"name" gorm:"type:varchar(100);not null"`
	Description          string         `json:"description,omitempty" gorm:"type:text"`
	PriceMonthly         int64          `json:"price_monthly"` // cents
	PriceYearly          int64          `json:"price_yearly"`  // cents
	StripePriceIDMonthly string         `json:"-" gorm:"type:varchar(255)"`
	StripePriceIDYearly  string         `json:"-" gorm:"type:varchar(255)"`
	MaxUsers             int            `json:"max_users"`
	MaxClients           int            `json:"max_clients"`
	MaxStorageGB         int            `json:"max_storage_gb"`
	Features             []string       `json:"features" gorm:"serializer:json"`
	IsActive             bool           `json:"is_active" gorm:"default:true"`
	IsPublic             bool           `json:"is_public" gorm:"default:true"`
	SortOrder            int            `json:"sort_order" gorm:"default:0"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
