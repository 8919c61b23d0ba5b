// internal/models/image.go
package models

// Image is a stored picture of an advert. At most one MAIN image exists per
// advert, enforced by a partial unique index.
type Image struct {
	BaseModel
	AdvertID uint      `json:"advert" gorm:"not null;index"`
	File     string    `json:"file" gorm:"size:255;not null;uniqueIndex"`
	Type     ImageType `json:"type" gorm:"type:varchar(5);not null"`
}
