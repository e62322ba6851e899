package auth

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/pkg"
)

// UserStore covers the credential lookups the generic CRUD layer does not
// expose. Writes still go through the CRUD service so registration is
// audit-stamped like every other insert.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type gormUserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore backed by the given GORM database.
func NewUserStore(db *gorm.DB) UserStore {
	return &gormUserStore{db: db}
}

// GetByEmail retrieves a non-deleted user by email.
func (r *gormUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_deleted = ?", email, false).
		First(&user).Error
	if err != nil {
		return nil, pkg.MapError(err)
	}
	return &user, nil
}
