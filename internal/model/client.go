package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client statuses.
const (
	ClientActive   = "active"
	ClientInactive = "inactive"
	ClientChurned  = "churned"
)

// Client is a customer record owned by a tenant
type Client struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  string         `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Email     string         `json:"email,omitempty" gorm:"type:varchar(255)"`
	Phone     string         `json:"phone,omitempty" gorm:"type:varchar(50)"`
	Company   string         `json:"company,omitempty" gorm:"type:varchar(255)"`
	Status    string         `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	Notes     string         `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
