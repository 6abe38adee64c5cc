package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/jackc/pgx/v5"
)

// UserRepository is a read-only view of the account directory.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, is_admin
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}
