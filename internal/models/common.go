// internal/models/common.go
package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StringArray is a text[] column on PostgreSQL and a plain text column
// holding the same array literal everywhere else.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *StringArray) Scan(value interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return err
	}
	*a = StringArray(arr)
	return nil
}

func (StringArray) GormDataType() string {
	return "text[]"
}

func (StringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Contains reports whether v is an element of the array.
func (a StringArray) Contains(v string) bool {
	for _, item := range a {
		if item == v {
			return true
		}
	}
	return false
}

// Enums
type OwnerKind string

const (
	OwnerKindUser   OwnerKind = "user"
	OwnerKindAdvert OwnerKind = "advert"
)

func (k OwnerKind) IsValid() bool {
	_, ok := ownerTables[k]
	return ok
}

type ImageType string

const (
	ImageTypeMain  ImageType = "MAIN"
	ImageTypeExtra ImageType = "EXTRA"
)

func (t ImageType) IsValid() bool {
	return t == ImageTypeMain || t == ImageTypeExtra
}

type Unit string

const (
	UnitPiece    Unit = "piece"
	UnitKilogram Unit = "kg"
	UnitGram     Unit = "g"
	UnitLiter    Unit = "l"
	UnitMeter    Unit = "m"
	UnitPack     Unit = "pack"
)

var Units = []Unit{UnitPiece, UnitKilogram, UnitGram, UnitLiter, UnitMeter, UnitPack}

func (u Unit) IsValid() bool {
	for _, v := range Units {
		if u == v {
			return true
		}
	}
	return false
}

type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityOnOrder     Availability = "on_order"
	AvailabilityUnavailable Availability = "unavailable"
)

func (a Availability) IsValid() bool {
	return a == AvailabilityAvailable || a == AvailabilityOnOrder || a == AvailabilityUnavailable
}

const (
	DeliveryPickup   = "pickup"
	DeliveryNovaPost = "nova_post"
	DeliveryCourier  = "courier"
)

var DeliveryMethods = []string{DeliveryPickup, DeliveryNovaPost, DeliveryCourier}

const (
	PaymentCard = "card"
	PaymentCash = "cash"
)

var PaymentMethods = []string{PaymentCard, PaymentCash}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

type OrderPaymentMethod string

const (
	OrderPaymentVisa       OrderPaymentMethod = "visa"
	OrderPaymentMastercard OrderPaymentMethod = "mastercard"
	OrderPaymentCash       OrderPaymentMethod = "cash"
)

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)
