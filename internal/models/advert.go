// internal/models/advert.go
package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Advert struct {
	BaseModel
	OwnerID         uint            `json:"owner" gorm:"not null;index"`
	CategoryID      uint            `json:"category" gorm:"not null;index"`
	Name            string          `json:"name" gorm:"size:70;not null"`
	Description     string          `json:"description" gorm:"size:1024"`
	Price           decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Quantity        int             `json:"quantity" gorm:"not null"`
	Unit            Unit            `json:"unit" gorm:"type:varchar(10);not null"`
	Availability    Availability    `json:"availability" gorm:"type:varchar(20);not null"`
	Location        string          `json:"location" gorm:"size:100;not null"`
	DeliveryMethods StringArray     `json:"delivery_methods" gorm:"not null"`
	DeliveryComment string          `json:"delivery_comment" gorm:"size:512"`
	PaymentMethods  StringArray     `json:"payment_methods" gorm:"not null"`
	PaymentCard     string          `json:"payment_card" gorm:"size:19"`
	PaymentComment  string          `json:"payment_comment" gorm:"size:512"`

	// Relationships
	Owner    User     `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT"`
	Category Category `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Images   []Image  `json:"-" gorm:"foreignKey:AdvertID;constraint:OnDelete:CASCADE"`
	Address  *Address `json:"-" gorm:"polymorphic:Owner;polymorphicType:OwnerKind;polymorphicId:OwnerID;polymorphicValue:advert"`
}

func (a *Advert) AfterDelete(tx *gorm.DB) error {
	return DeleteAddressFor(tx, OwnerKindAdvert, a.ID)
}

// MainImage returns the sole MAIN image, or nil. Images must be loaded.
func (a *Advert) MainImage() *Image {
	for i := range a.Images {
		if a.Images[i].Type == ImageTypeMain {
			return &a.Images[i]
		}
	}
	return nil
}

// ExtraImages returns the EXTRA images in load order.
func (a *Advert) ExtraImages() []Image {
	extras := make([]Image, 0, len(a.Images))
	for _, img := range a.Images {
		if img.Type == ImageTypeExtra {
			extras = append(extras, img)
		}
	}
	return extras
}
