package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, name, avatar_url, google_id, preferences, is_active, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.AvatarURL, &u.GoogleID,
		&u.Preferences, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.IsActive = true
	if user.Preferences.Theme == "" {
		user.Preferences = models.DefaultPreferences()
	}

	query := `INSERT INTO users (id, email, password_hash, name, avatar_url, google_id, preferences, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.AvatarURL, user.GoogleID,
		user.Preferences, user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapWriteErr(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1",
		strings.ToLower(strings.TrimSpace(email)),
	))
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE google_id = $1", googleID))
}

// LinkGoogle attaches a Google identity to an existing account, filling the avatar only when unset.
func (r *UserRepo) LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string, avatarURL *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET google_id = $1, avatar_url = COALESCE(avatar_url, $2), updated_at = NOW() WHERE id = $3`,
		googleID, avatarURL, userID,
	)
	return mapWriteErr(err)
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, name string, prefs models.UserPreferences) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET name = $1, preferences = $2, updated_at = NOW() WHERE id = $3
		RETURNING `+userColumns,
		name, prefs, userID,
	))
}
