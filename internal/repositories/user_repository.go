package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository defines interactions with the user directory.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]models.Peer, error)
	GetUser(ctx context.Context, id string) (models.Peer, error)
}

// UserRepo is a sqlx-backed repository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ListUsers returns every user ordered by name.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.Peer, error) {
	var users []models.Peer
	err := r.db.SelectContext(ctx, &users, `SELECT id, name, email FROM users ORDER BY name ASC`)
	return users, err
}

// GetUser retrieves a single user.
func (r *UserRepo) GetUser(ctx context.Context, id string) (models.Peer, error) {
	var user models.Peer
	err := r.db.GetContext(ctx, &user, `SELECT id, name, email FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Peer{}, ErrUserNotFound
	}
	return user, err
}
