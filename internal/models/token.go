// internal/models/token.go
package models

import "time"

// OutstandingToken records every refresh token ever issued so it can later be
// blacklisted by jti or by user.
type OutstandingToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    *uint     `gorm:"index"`
	JTI       string    `gorm:"column:jti;uniqueIndex;size:255;not null"`
	Token     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}

type BlacklistedToken struct {
	ID            uint      `gorm:"primaryKey"`
	TokenID       uint      `gorm:"uniqueIndex;not null"`
	BlacklistedAt time.Time `gorm:"autoCreateTime"`

	Token OutstandingToken `gorm:"foreignKey:TokenID;constraint:OnDelete:CASCADE"`
}
