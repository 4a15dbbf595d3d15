package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category struct {
	gorm.Model
	Name          string        `json:"name" gorm:"size:191;not null"`
	Subcategories []Subcategory `json:"subcategories,omitempty" gorm:"foreignKey:CategoryID"`
}

// Subcategory always belongs to exactly one Category.
type Subcategory struct {
	gorm.Model
	CategoryID uint      `json:"category_id" gorm:"index;not null"`
	Name       string    `json:"name" gorm:"size:191;not null"`
	Category   *Category `json:"category,omitempty"`
}

// RequiredDocumentSet lists the file labels an application for the pair must upload.
type RequiredDocumentSet struct {
	gorm.Model
	CategoryID    uint                         `json:"category_id" gorm:"uniqueIndex:idx_doc_set_pair;not null"`
	SubcategoryID uint                         `json:"subcategory_id" gorm:"uniqueIndex:idx_doc_set_pair;not null"`
	Labels        datatypes.JSONType[[]string] `json:"labels"`
}

// RequiredFieldSet lists the free-text field labels an application for the pair must capture.
type RequiredFieldSet struct {
	gorm.Model
	CategoryID    uint                         `json:"category_id" gorm:"uniqueIndex:idx_field_set_pair;not null"`
	SubcategoryID uint                         `json:"subcategory_id" gorm:"uniqueIndex:idx_field_set_pair;not null"`
	Labels        datatypes.JSONType[[]string] `json:"labels"`
}
