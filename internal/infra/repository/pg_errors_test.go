package repository

import (
	"errors"
	"fmt"
	"testing"

	repo "storefront/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, repo.ErrNotFound},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, repo.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, repo.ErrConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, repo.ErrConflict},
		{"statement timeout", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "57014"}), repo.ErrConflict},
		{"unique violation", &pgconn.PgError{Code: "23505"}, repo.ErrDuplicate},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestTranslate_KeepsPgError(t *testing.T) {
	err := translate(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "55P03", pgErr.Code)
}

func TestTranslate_CheckViolationIsNotConflict(t *testing.T) {
	err := translate(&pgconn.PgError{Code: "23514"})
	assert.False(t, errors.Is(err, repo.ErrConflict))
	assert.False(t, errors.Is(err, repo.ErrDuplicate))
}
