package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DashboardWidget is a single configurable panel on a tenant's dashboard
type DashboardWidget struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  string         `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Title     string         `json:"title" gorm:"type:varchar(255);not null"`
	Type      string         `json:"type" gorm:"type:varchar(50);not null"`
	Position  int            `json:"position" gorm:"not null"`
	Enabled   bool           `json:"enabled" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (w *DashboardWidget) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
