package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tamales-preorder/internal/domain"
)

const userColumns = `email, name, birthday, phone, verification_code, code_created_at, verified, created_at`

const (
	selectUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	// On conflict the row keeps its verified flag and created_at.
	upsertUser = `INSERT INTO users (email, name, birthday, phone, verification_code, code_created_at, verified, created_at)
VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
ON CONFLICT (email) DO UPDATE SET
    name = EXCLUDED.name,
    birthday = EXCLUDED.birthday,
    phone = EXCLUDED.phone,
    verification_code = EXCLUDED.verification_code,
    code_created_at = EXCLUDED.code_created_at`

	updateVerification = `UPDATE users SET verification_code = $1, code_created_at = $2 WHERE email = $3`

	markVerified = `UPDATE users SET verified = TRUE WHERE email = $1 AND verification_code = $2 RETURNING ` + userColumns
)

// UserRepo provides typed PostgreSQL operations for the users table.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUserByEmail, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// Upsert inserts u or, when the email already exists, overwrites its profile
// and verification-code fields in the same statement.
func (r *UserRepo) Upsert(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, upsertUser,
		u.Email, u.Name, u.Birthday, u.Phone, u.VerificationCode, u.CodeCreatedAt, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepo) UpdateVerification(ctx context.Context, email string, code, codeCreatedAt *string) error {
	res, err := r.db.ExecContext(ctx, updateVerification, code, codeCreatedAt, email)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	return expectAffected(res, "user not found")
}

// MarkVerified flags the user verified only if code matches, in one statement.
func (r *UserRepo) MarkVerified(ctx context.Context, email, code string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, markVerified, email, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no user with that code: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.Email, &u.Name, &u.Birthday, &u.Phone,
		&u.VerificationCode, &u.CodeCreatedAt, &u.Verified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func expectAffected(res sql.Result, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", notFoundMsg, domain.ErrNotFound)
	}
	return nil
}
