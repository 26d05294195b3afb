package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/pedicare/clinic-api/internal/model"
	"github.com/pedicare/clinic-api/internal/repository"
)

const userCacheTTL = 5 * time.Minute

type userRepository struct {
	*BaseRepository
	cache *gocache.Cache
}

// NewUserRepository returns a user reader with a short-TTL cache in front;
// cancellation fanout and the auth middleware hit the same rows repeatedly.
func NewUserRepository(base *BaseRepository) repository.UserRepository {
	return &userRepository{
		BaseRepository: base,
		cache:          gocache.New(userCacheTTL, 2*userCacheTTL),
	}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if cached, ok := r.cache.Get(id.String()); ok {
		return cached.(*model.User), nil
	}

	query := `
		SELECT id, name, email, phone, role, created_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	r.cache.Set(id.String(), &user, gocache.DefaultExpiration)
	return &user, nil
}
