package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles within a tenant.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// User represents a user account. A user belongs to exactly one tenant; the
// tenant affiliation is set at creation and no update path may change it.
type User struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      string         `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Username      string         `json:"username" gorm:"type:varchar(100);not null"`
	Email         string         `json:"email" gorm:"type:varchar(255);index;not null"`
	Password      string         `json:"-" gorm:"type:varchar(255);not null"`
	FirstName     string         `json:"first_name,omitempty" gorm:"type:varchar(100)"`
	LastName      string         `json:"last_name,omitempty" gorm:"type:varchar(100)"`
	Role          string         `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	Permissions   []string       `json:"permissions" gorm:"serializer:json"`
	IsActive      bool           `json:"is_active" gorm:"default:true"`
	EmailVerified bool           `json:"email_verified" gorm:"default:false"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
