package category

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fintrack/internal/apperror"
	"fintrack/internal/database"
)

var (
	ErrCategoryNotFound = apperror.NewNotFound("Transaction category not found")
	ErrCategoryExists   = apperror.NewConflict("Transaction category already exists")
	ErrCategoryInUse    = apperror.NewConflict("Transaction category is used by existing transactions")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SeedDefaults creates any missing default category and reports how many
// were added. Running it again is a no-op.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, d := range Defaults {
		var existing int64
		err := s.db.WithContext(ctx).Model(&database.TransactionCategory{}).
			Where("name = ? AND type = ? AND user_id IS NULL", d.Name, database.CategoryDefault).
			Count(&existing).Error
		if err != nil {
			return created, err
		}
		if existing > 0 {
			continue
		}

		c := database.TransactionCategory{Name: d.Name, Description: d.Description, Type: database.CategoryDefault}
		if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// List returns the defaults plus the user's own categories ordered by name.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]database.TransactionCategory, error) {
	var categories []database.TransactionCategory
	err := s.db.WithContext(ctx).
		Where("type = ? OR user_id = ?", database.CategoryDefault, userID).
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// Visible returns a category the user may book transactions against.
func (s *Service) Visible(ctx context.Context, userID, id uuid.UUID) (*database.TransactionCategory, error) {
	var c database.TransactionCategory
	err := s.db.WithContext(ctx).
		Where("id = ? AND (type = ? OR user_id = ?)", id, database.CategoryDefault, userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

type CreateInput struct {
	Name        string `json:"name" validate:"required,min=2,max=64,alphaspace"`
	Description string `json:"description" validate:"max=128"`
}

// Create adds a custom category. Names are unique per user, including
// against the defaults, ignoring case.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*database.TransactionCategory, error) {
	name := strings.TrimSpace(input.Name)
	if err := s.checkNameFree(ctx, userID, name, uuid.Nil); err != nil {
		return nil, err
	}

	c := database.TransactionCategory{
		UserID:      &userID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Type:        database.CategoryCustom,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return &c, nil
}

type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=64,alphaspace"`
	Description *string `json:"description" validate:"omitempty,max=128"`
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*database.TransactionCategory, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := s.checkNameFree(ctx, userID, name, id); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if len(updates) == 0 {
		return c, nil
	}

	if err := s.db.WithContext(ctx).Model(c).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return s.owned(ctx, userID, id)
}

// Delete removes a custom category that no transaction refers to.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	var used int64
	if err := s.db.WithContext(ctx).Model(&database.Transaction{}).Where("trans_category_id = ?", c.ID).Count(&used).Error; err != nil {
		return err
	}
	if used > 0 {
		return ErrCategoryInUse
	}

	return s.db.WithContext(ctx).Delete(c).Error
}

// owned finds a custom category of the user. Defaults are never owned.
func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (*database.TransactionCategory, error) {
	var c database.TransactionCategory
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND type = ?", id, userID, database.CategoryCustom).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Service) checkNameFree(ctx context.Context, userID uuid.UUID, name string, exclude uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&database.TransactionCategory{}).
		Where("LOWER(name) = LOWER(?) AND (type = ? OR user_id = ?) AND id <> ?", name, database.CategoryDefault, userID, exclude).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryExists
	}
	return nil
}
