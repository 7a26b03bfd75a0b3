package category

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fintrack/internal/database"
	"fintrack/internal/database/dbtest"
)

func seeded(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	s := NewService(db)
	_, err := s.SeedDefaults(context.Background())
	require.NoError(t, err)
	return s, db
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	s := NewService(db)
	ctx := context.Background()

	created, err := s.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Defaults), created)

	created, err = s.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	var count int64
	require.NoError(t, db.Model(&database.TransactionCategory{}).Count(&count).Error)
	assert.EqualValues(t, len(Defaults), count)
}

func TestCreateAndList(t *testing.T) {
	s, _ := seeded(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	c, err := s.Create(ctx, alice, CreateInput{Name: " Pets ", Description: "Vet and food"})
	require.NoError(t, err)
	assert.Equal(t, "Pets", c.Name)
	assert.Equal(t, database.CategoryCustom, c.Type)
	require.NotNil(t, c.UserID)
	assert.Equal(t, alice, *c.UserID)

	mine, err := s.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, len(Defaults)+1)
	for i := 1; i < len(mine); i++ {
		assert.LessOrEqual(t, mine[i-1].Name, mine[i].Name)
	}

	theirs, err := s.List(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, theirs, len(Defaults))
}

func TestCreateRejectsDuplicateNames(t *testing.T) {
	s, _ := seeded(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := s.Create(ctx, alice, CreateInput{Name: "Pets"})
	require.NoError(t, err)

	_, err = s.Create(ctx, alice, CreateInput{Name: "pets"})
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = s.Create(ctx, alice, CreateInput{Name: "Salary"})
	assert.ErrorIs(t, err, ErrCategoryExists, "defaults are reserved")

	_, err = s.Create(ctx, bob, CreateInput{Name: "Pets"})
	assert.NoError(t, err, "names are scoped per user")
}

func TestUpdate(t *testing.T) {
	s, _ := seeded(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	c, err := s.Create(ctx, alice, CreateInput{Name: "Pets"})
	require.NoError(t, err)
	_, err = s.Create(ctx, alice, CreateInput{Name: "Garden"})
	require.NoError(t, err)

	name, desc := "Animals", "Vet bills"
	updated, err := s.Update(ctx, alice, c.ID, UpdateInput{Name: &name, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Animals", updated.Name)
	assert.Equal(t, "Vet bills", updated.Description)

	clash := "Garden"
	_, err = s.Update(ctx, alice, c.ID, UpdateInput{Name: &clash})
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = s.Update(ctx, bob, c.ID, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	defaults, err := s.List(ctx, bob)
	require.NoError(t, err)
	_, err = s.Update(ctx, alice, defaults[0].ID, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrCategoryNotFound, "defaults are read only")
}

func TestDelete(t *testing.T) {
	s, db := seeded(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	unused, err := s.Create(ctx, alice, CreateInput{Name: "Pets"})
	require.NoError(t, err)
	used, err := s.Create(ctx, alice, CreateInput{Name: "Garden"})
	require.NoError(t, err)

	require.NoError(t, db.Create(&database.Transaction{
		UserID:          alice,
		TransCategoryID: used.ID,
		Amount:          10,
		Currency:        "INR",
		Type:            database.TransactionExpense,
		Date:            time.Now().UTC(),
	}).Error)

	assert.ErrorIs(t, s.Delete(ctx, bob, unused.ID), ErrCategoryNotFound)
	assert.ErrorIs(t, s.Delete(ctx, alice, used.ID), ErrCategoryInUse)
	require.NoError(t, s.Delete(ctx, alice, unused.ID))
	assert.ErrorIs(t, s.Delete(ctx, alice, unused.ID), ErrCategoryNotFound)
}

func TestVisible(t *testing.T) {
	s, _ := seeded(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	c, err := s.Create(ctx, alice, CreateInput{Name: "Pets"})
	require.NoError(t, err)

	_, err = s.Visible(ctx, alice, c.ID)
	assert.NoError(t, err)
	_, err = s.Visible(ctx, bob, c.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	defaults, err := s.List(ctx, bob)
	require.NoError(t, err)
	_, err = s.Visible(ctx, bob, defaults[0].ID)
	assert.NoError(t, err)
}
