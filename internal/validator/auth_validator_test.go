package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func TestValidateRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByEmail", ctx, "a@example.com").Return(nil, nil)

		err := NewAuthValidator(users).ValidateRegister(ctx, "a@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("bad email", func(t *testing.T) {
		err := NewAuthValidator(new(mockUserRepo)).ValidateRegister(ctx, "not-an-email", "password123")
		assert.ErrorIs(t, err, usecase.ErrValidation)
	})

	t.Run("short password", func(t *testing.T) {
		err := NewAuthValidator(new(mockUserRepo)).ValidateRegister(ctx, "a@example.com", "short")
		assert.ErrorIs(t, err, usecase.ErrValidation)
	})

	t.Run("email taken", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByEmail", ctx, "a@example.com").Return(&model.User{ID: 1}, nil)

		err := NewAuthValidator(users).ValidateRegister(ctx, "a@example.com", "password123")
		assert.ErrorIs(t, err, usecase.ErrEmailTaken)
	})

	t.Run("db error", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("FindByEmail", ctx, "a@example.com").Return(nil, errors.New("down"))

		err := NewAuthValidator(users).ValidateRegister(ctx, "a@example.com", "password123")
		assert.ErrorIs(t, err, usecase.ErrInternal)
	})
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator(new(mockUserRepo))

	assert.NoError(t, v.ValidateLogin(context.Background(), "a@example.com", "x"))
	assert.ErrorIs(t, v.ValidateLogin(context.Background(), "", "x"), usecase.ErrValidation)
}
