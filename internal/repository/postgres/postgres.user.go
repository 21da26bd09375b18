// FilePath: internal/repository/postgres/postgres.user.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/gridsense/telemetry-hub/internal/database"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/models"
)

type UserRepo struct {
	PostgresBaseRepo
}

func NewUserRepository(db database.DB) (*UserRepo, error) {
	repo := &UserRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *UserRepo) initializeSchema() error {
	query := `CREATE TABLE IF NOT EXISTS users (
		user_id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT,
		api_key_hash TEXT,
		api_key_salt TEXT,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		is_registered BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		registered_at TIMESTAMPTZ,
		last_login TIMESTAMPTZ
	)`

	if _, err := r.db.GetDB().Exec(query); err != nil {
		return errors.NewDatabaseError("failed to initialize user schema", err)
	}
	return nil
}

const userColumns = `user_id, username, email, api_key_hash, api_key_salt,
	is_active, is_registered, created_at, registered_at, last_login`

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	err := r.db.GetDB().GetContext(ctx, user, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("user not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get user", err)
	}
	return user, nil
}

// ListCredentialed returns all users with a stored key hash, including
// inactive ones: the auth gate must tell a valid key on a deactivated
// account apart from an unknown key. Hashes are salted per user, so key
// verification has to try each candidate.
func (r *UserRepo) ListCredentialed(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	query := `SELECT ` + userColumns + ` FROM users
		WHERE api_key_hash IS NOT NULL`

	err := r.db.GetDB().SelectContext(ctx, &users, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list users", err)
	}
	return users, nil
}

// SetCredentials stores a freshly issued key hash and marks the user as
// registered and active.
func (r *UserRepo) SetCredentials(ctx context.Context, userID int64, keyHash, keySalt string, registeredAt time.Time) error {
	query := `
		UPDATE users SET
			api_key_hash = $1,
			api_key_salt = $2,
			is_registered = TRUE,
			is_active = TRUE,
			registered_at = $3
		WHERE user_id = $4`

	result, err := r.db.GetDB().ExecContext(ctx, query, keyHash, keySalt, registeredAt, userID)
	if err != nil {
		return errors.NewDatabaseError("failed to set credentials", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("user not found", nil)
	}
	return nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE user_id = $2`

	if _, err := r.db.GetDB().ExecContext(ctx, query, at, userID); err != nil {
		return errors.NewDatabaseError("failed to update last login", err)
	}
	return nil
}
