// internal/models/user.go
package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UnusablePassword is stored in place of a hash when the account must never
// authenticate again. No encoded hash can equal it.
const UnusablePassword = "-"

// DisabledPhone replaces the phone number of a disabled account.
const DisabledPhone = "+38 (012) 345 6789"

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FullName     *string    `json:"full_name" gorm:"size:100"`
	Phone        *string    `json:"phone" gorm:"size:20"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	IsActive     bool       `json:"is_active" gorm:"not null"`
	IsStaff      bool       `json:"is_staff" gorm:"not null"`
	IsSuperuser  bool       `json:"is_superuser" gorm:"not null"`
	LastLogin    *time.Time `json:"last_login"`
	JoinedAt     time.Time  `json:"joined_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relationships
	Address *Address `json:"address" gorm:"polymorphic:Owner;polymorphicType:OwnerKind;polymorphicId:OwnerID;polymorphicValue:user"`
}

func (u *User) AfterDelete(tx *gorm.DB) error {
	return DeleteAddressFor(tx, OwnerKindUser, u.ID)
}

// DisabledEmail is the placeholder address assigned on soft-disable.
func (u *User) DisabledEmail() string {
	return fmt.Sprintf("user.%d@disabled.com", u.ID)
}

// DisabledFullName is the placeholder name assigned on soft-disable.
func (u *User) DisabledFullName() string {
	return fmt.Sprintf("disabled user %d", u.ID)
}

// CanBeDisabled reports whether the account may disable itself.
func (u *User) CanBeDisabled() bool {
	return !u.IsStaff && !u.IsSuperuser
}
