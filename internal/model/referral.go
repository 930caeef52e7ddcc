package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Referral statuses.
const (
	ReferralPending   = "pending"
	ReferralConverted = "converted"
	ReferralPaid      = "paid"
)

// Referral is a tenant-owned referral program entry. Commission is stored in
// cents and computed from the configured rate at conversion time.
type Referral struct {
	ID              string         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        string         `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Code            string         `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	ReferredEmail   string         `json:"referred_email,omitempty" gorm:"type:varchar(255)"`
	Status          string         `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	CommissionCents int64          `json:"commission_cents" gorm:"default:0"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
