package models

import (
	"time"
)

// User mirrors a Firebase account. UID is the token subject; Role is the
// role claim seen on the most recent request.
type User struct {
	UID         string `gorm:"primaryKey;size:128" json:"uid"`
	Email       string `gorm:"index;size:255" json:"email"`
	DisplayName string `gorm:"size:255" json:"displayName"`
	Role        string `gorm:"size:20;not null;default:'student'" json:"role"`

	LastSeenAt *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
