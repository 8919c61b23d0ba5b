// internal/models/category.go
package models

type Category struct {
	BaseModel
	Name     string     `json:"name" gorm:"uniqueIndex;size:100;not null"`
	ParentID *uint      `json:"parent_id" gorm:"index"`
	Parent   *Category  `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL"`
	Children []Category `json:"-" gorm:"foreignKey:ParentID"`
}

func (c *Category) IsChild() bool {
	return c.ParentID != nil
}

// IsParent is only meaningful once Children has been loaded.
func (c *Category) IsParent() bool {
	return len(c.Children) > 0
}
