package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	CategoryDefault = "default"
	CategoryCustom  = "custom"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

type User struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name              string     `json:"name" gorm:"not null"`
	Email             string     `json:"email" gorm:"not null;uniqueIndex"`
	PasswordHash      string     `json:"-" gorm:"not null"`
	Role              string     `json:"role" gorm:"not null;default:user"`
	IsEmailVerified   bool       `json:"isEmailVerified" gorm:"not null;default:false"`
	LastLoginAt       *time.Time `json:"lastLoginAt"`
	LoginAttempts     int        `json:"loginAttempts" gorm:"not null;default:0"`
	LockUntil         *time.Time `json:"lockUntil"`
	PreferredCurrency string     `json:"preferredCurrency" gorm:"not null;default:INR"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RefreshToken is one login session. Only the hash of the opaque token is
// stored.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	TokenHash string    `json:"-" gorm:"not null;uniqueIndex"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type PasswordResetToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	TokenHash string    `json:"-" gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TransactionCategory is either one of the shared defaults (UserID nil) or a
// custom category owned by a single user.
type TransactionCategory struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      *uuid.UUID `json:"userId" gorm:"type:uuid;uniqueIndex:idx_category_name_owner"`
	Name        string     `json:"name" gorm:"not null;uniqueIndex:idx_category_name_owner"`
	Description string     `json:"description"`
	Type        string     `json:"type" gorm:"not null;default:custom;uniqueIndex:idx_category_name_owner"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (c *TransactionCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Transaction struct {
	ID              uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID            `json:"userId" gorm:"type:uuid;not null;index:idx_transaction_user_date"`
	TransCategoryID uuid.UUID            `json:"transCategoryId" gorm:"type:uuid;not null;index"`
	TransCategory   *TransactionCategory `json:"transCategory,omitempty" gorm:"foreignKey:TransCategoryID"`
	Amount          float64              `json:"amount" gorm:"not null"`
	Currency        string               `json:"currency" gorm:"not null"`
	Type            string               `json:"type" gorm:"not null"`
	Description     string               `json:"description"`
	Date            time.Time            `json:"date" gorm:"not null;index:idx_transaction_user_date"`
	ReceiptKey      *string              `json:"receiptKey"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
