// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Order struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	CustomerID      uint               `json:"customer" gorm:"not null;index"`
	Status          OrderStatus        `json:"status" gorm:"type:varchar(20);not null;index"`
	ShippingAddress string             `json:"shipping_address" gorm:"size:255;not null"`
	PaymentMethod   OrderPaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null"`
	ShippingMethod  ShippingMethod     `json:"shipping_method" gorm:"type:varchar(20);not null"`
	Notes           string             `json:"notes" gorm:"type:text"`
	IsPaid          bool               `json:"is_paid" gorm:"not null"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	Customer User `json:"-" gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
