package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/staynest/booking-backend/internal/models"
)

// UserRepository provides read-only access to users. Registration and
// profile management are owned by the identity service.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// GetUserByID retrieves a user by ID. Returns nil without error when the
// user does not exist.
func (r *UserRepository) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, phone, email, first_name, last_name,
		       phone_verified, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	err := r.db.Get(&user, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}
