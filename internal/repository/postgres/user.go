package postgres

import (
	"context"
	"database/sql"
	"errors"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, COALESCE(phone_number, ''), password_hash, name, role, COALESCE(tier, ''), COALESCE(specialty, ''), created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, email, phone_number, password_hash, name, role, tier, specialty, created_at, updated_at)
	          VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NOW(), NOW())`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PhoneNumber, user.PasswordHash, user.Name, user.Role, user.Tier, user.Specialty)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) get(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PhoneNumber, &user.PasswordHash, &user.Name,
		&user.Role, &user.Tier, &user.Specialty, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET email = $2, phone_number = NULLIF($3, ''), name = $4, tier = NULLIF($5, ''),
	            specialty = NULLIF($6, ''), updated_at = NOW()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PhoneNumber, user.Name, user.Tier, user.Specialty)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *userRepository) ListTherapists(ctx context.Context, page, pageSize int32) ([]domain.User, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + userColumns + ` FROM users WHERE role = 'THERAPIST' ORDER BY name ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Email, &user.PhoneNumber, &user.PasswordHash, &user.Name,
			&user.Role, &user.Tier, &user.Specialty, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE role = 'THERAPIST'`).Scan(&count); err != nil {
		return nil, 0, err
	}
	return users, count, nil
}
