package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

var ErrUserAlreadyExists = errors.New("user already exists")

type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash sql.NullString `db:"password_hash"`
	FullName     sql.NullString `db:"full_name"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores the user with a lowercased email; the email is unique.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	query := r.db.Rebind(`
		INSERT INTO users (id, email, password_hash, full_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		emptyToNull(user.PasswordHash),
		emptyToNull(user.FullName),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := r.db.Rebind(`
		SELECT id, email, password_hash, full_name, created_at, updated_at
		FROM users
		WHERE email = ?
	`)

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, strings.ToLower(strings.TrimSpace(email))); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *UserRepository) ListRecent(ctx context.Context, limit int32) ([]*entity.User, error) {
	query := r.db.Rebind(`
		SELECT id, email, password_hash, full_name, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT ?
	`)

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	users := make([]*entity.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toEntity())
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, err
	}
	return total, nil
}

func (row *userRow) toEntity() *entity.User {
	return &entity.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash.String,
		FullName:     row.FullName.String,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
