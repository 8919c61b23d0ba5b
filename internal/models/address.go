// internal/models/address.go
package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Address belongs to exactly one owner, identified by (owner_kind, owner_id).
type Address struct {
	BaseModel
	City      string    `json:"city" gorm:"size:100;not null"`
	Street    string    `json:"street" gorm:"size:100;not null"`
	Number    string    `json:"number" gorm:"size:10;not null"`
	OwnerKind OwnerKind `json:"-" gorm:"type:varchar(20);not null;index:idx_addresses_owner"`
	OwnerID   uint      `json:"-" gorm:"not null;index:idx_addresses_owner"`
}

// ownerTables maps every owner kind to the table holding its rows.
var ownerTables = map[OwnerKind]string{
	OwnerKindUser:   "users",
	OwnerKindAdvert: "adverts",
}

// OwnerExists checks that the owner row referenced by (kind, id) is present.
func OwnerExists(tx *gorm.DB, kind OwnerKind, id uint) (bool, error) {
	table, ok := ownerTables[kind]
	if !ok {
		return false, fmt.Errorf("unknown address owner kind %q", kind)
	}

	var count int64
	if err := tx.Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteAddressFor removes every address attached to the owner. Owners call it
// from their AfterDelete hooks; it is a no-op when no address exists.
func DeleteAddressFor(tx *gorm.DB, kind OwnerKind, id uint) error {
	if id == 0 {
		return nil
	}
	return tx.Where("owner_kind = ? AND owner_id = ?", kind, id).Delete(&Address{}).Error
}
