package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fintrack/internal/apperror"
	"fintrack/internal/database"
	"fintrack/internal/platform/category"
	"fintrack/pkg/utils"
)

var (
	ErrTransactionNotFound = apperror.NewNotFound("Transaction not found")
	ErrInvalidCategory     = apperror.NewBadRequest("Invalid Transaction Category")
	ErrReceiptNotFound     = apperror.NewNotFound("Receipt not found")
)

type Service struct {
	db         *gorm.DB
	categories *category.Service
	now        func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:         db,
		categories: category.NewService(db),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type CreateInput struct {
	TransCategoryID string     `json:"transCategoryId" validate:"required,uuid"`
	Amount          float64    `json:"amount" validate:"gt=0"`
	Currency        string     `json:"currency" validate:"omitempty,currency"`
	Type            string     `json:"type" validate:"required,oneof=income expense"`
	Description     string     `json:"description" validate:"max=128"`
	Date            *time.Time `json:"date"`
}

type UpdateInput struct {
	TransCategoryID *string    `json:"transCategoryId" validate:"omitempty,uuid"`
	Amount          *float64   `json:"amount" validate:"omitempty,gt=0"`
	Currency        *string    `json:"currency" validate:"omitempty,currency"`
	Type            *string    `json:"type" validate:"omitempty,oneof=income expense"`
	Description     *string    `json:"description" validate:"omitempty,max=128"`
	Date            *time.Time `json:"date"`
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*database.Transaction, error) {
	categoryID, err := s.visibleCategory(ctx, userID, input.TransCategoryID)
	if err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		if currency, err = s.preferredCurrency(ctx, userID); err != nil {
			return nil, err
		}
	}

	date := s.now()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	t := database.Transaction{
		UserID:          userID,
		TransCategoryID: categoryID,
		Amount:          input.Amount,
		Currency:        currency,
		Type:            input.Type,
		Description:     strings.TrimSpace(input.Description),
		Date:            date,
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, t.ID)
}

// Get returns one transaction of the user with its category loaded.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*database.Transaction, error) {
	var t database.Transaction
	err := s.db.WithContext(ctx).
		Preload("TransCategory").
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]database.Transaction, error) {
	return s.ListByDateRange(ctx, userID, nil, nil)
}

// ListByDateRange returns the user's transactions newest first. Either bound
// may be omitted; both are inclusive.
func (s *Service) ListByDateRange(ctx context.Context, userID uuid.UUID, start, end *time.Time) ([]database.Transaction, error) {
	var transactions []database.Transaction
	err := s.scoped(ctx, userID, start, end).
		Preload("TransCategory").
		Order("date DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *Service) ListByLastNUnits(ctx context.Context, userID uuid.UUID, unit utils.TimeUnit, n int) ([]database.Transaction, error) {
	start, end, err := s.window(unit, n)
	if err != nil {
		return nil, err
	}
	return s.ListByDateRange(ctx, userID, &start, &end)
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*database.Transaction, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.TransCategoryID != nil {
		categoryID, err := s.visibleCategory(ctx, userID, *input.TransCategoryID)
		if err != nil {
			return nil, err
		}
		updates["trans_category_id"] = categoryID
	}
	if input.Amount != nil {
		updates["amount"] = *input.Amount
	}
	if input.Currency != nil {
		updates["currency"] = *input.Currency
	}
	if input.Type != nil {
		updates["type"] = *input.Type
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Date != nil {
		updates["date"] = input.Date.UTC()
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&database.Transaction{ID: t.ID}).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, userID, id)
}

// Delete removes the transaction and returns it as it was.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) (*database.Transaction, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Delete(&database.Transaction{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

// AttachReceipt records the storage key of a receipt and returns the key it
// replaced, if any.
func (s *Service) AttachReceipt(ctx context.Context, userID, id uuid.UUID, key string) (string, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}

	err = s.db.WithContext(ctx).Model(&database.Transaction{ID: t.ID}).Update("receipt_key", key).Error
	if err != nil {
		return "", err
	}

	if t.ReceiptKey == nil {
		return "", nil
	}
	return *t.ReceiptKey, nil
}

func (s *Service) Receipt(ctx context.Context, userID, id uuid.UUID) (string, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if t.ReceiptKey == nil {
		return "", ErrReceiptNotFound
	}
	return *t.ReceiptKey, nil
}

func (s *Service) scoped(ctx context.Context, userID uuid.UUID, start, end *time.Time) *gorm.DB {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if start != nil {
		q = q.Where("date >= ?", start.UTC())
	}
	if end != nil {
		q = q.Where("date <= ?", end.UTC())
	}
	return q
}

func (s *Service) window(unit utils.TimeUnit, n int) (time.Time, time.Time, error) {
	if err := utils.CheckUnits(unit, n); err != nil {
		return time.Time{}, time.Time{}, apperror.Wrap(apperror.BadRequest, err.Error(), err)
	}
	start, end := utils.DateRange(unit, n, s.now())
	return start, end, nil
}

func (s *Service) visibleCategory(ctx context.Context, userID uuid.UUID, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidCategory
	}
	if _, err := s.categories.Visible(ctx, userID, id); err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			return uuid.Nil, ErrInvalidCategory
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Service) preferredCurrency(ctx context.Context, userID uuid.UUID) (string, error) {
	var u database.User
	err := s.db.WithContext(ctx).Select("preferred_currency").First(&u, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "INR", nil
		}
		return "", err
	}
	return u.PreferredCurrency, nil
}
