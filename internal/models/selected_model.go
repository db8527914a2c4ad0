package models

import (
	"gorm.io/gorm"
)

type SelectedModel struct {
	gorm.Model
	Pattern  string `gorm:"uniqueIndex:idx_selected_models_pattern_version"`
	Version  string `gorm:"uniqueIndex:idx_selected_models_pattern_version"`
	ItemName string
	URN      string
}
