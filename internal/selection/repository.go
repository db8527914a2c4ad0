package selection

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/monorkin/stone-hub/internal/models"
)

// Repository persists the selection list. It follows the same contract as
// Set: entries are unique by pattern and version.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add stores model unless the same pattern and version is already selected.
// It reports whether a row was inserted.
func (repository *Repository) Add(model Model) (bool, error) {
	inserted := false

	err := repository.db.Transaction(func(tx *gorm.DB) error {
		var existing models.SelectedModel
		err := tx.Where("pattern = ? AND version = ?", model.Pattern, model.Version).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		record := models.SelectedModel{
			Pattern:  model.Pattern,
			Version:  model.Version,
			ItemName: model.ItemName,
			URN:      model.URN,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to add selected model: %w", err)
	}

	return inserted, nil
}

func (repository *Repository) List() ([]Model, error) {
	var records []models.SelectedModel
	if err := repository.db.Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list selected models: %w", err)
	}

	result := make([]Model, 0, len(records))
	for _, record := range records {
		result = append(result, Model{
			Pattern:  record.Pattern,
			ItemName: record.ItemName,
			Version:  record.Version,
			URN:      record.URN,
		})
	}

	return result, nil
}

// Clear removes every selection. Rows are hard deleted so the same model
// version can be selected again.
func (repository *Repository) Clear() error {
	err := repository.db.Unscoped().Where("1 = 1").Delete(&models.SelectedModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear selected models: %w", err)
	}

	return nil
}

// Load fills a Set with the persisted selection.
func (repository *Repository) Load() (*Set, error) {
	stored, err := repository.List()
	if err != nil {
		return nil, err
	}

	return NewSet(stored...), nil
}
