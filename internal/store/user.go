package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// User is an account row.
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	StreakDays   int    `db:"streak_days"`
	ExamDate     string `db:"exam_date"`
	CreatedAt    int64  `db:"created_at"`
}

// UserRepo manages accounts.
type UserRepo struct {
	db *sqlx.DB
}

// Create inserts u and sets its ID. A taken username or email returns
// ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *User) error {
	u.CreatedAt = time.Now().UnixMilli()
	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, streak_days, exam_date, created_at)
		 VALUES (:username, :email, :password_hash, :streak_days, :exam_date, :created_at)`, u)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", u.Username, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	u.ID = id
	return nil
}

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*User, error) {
	return r.one(ctx, `SELECT * FROM users WHERE username = ?`, username)
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, `SELECT * FROM users WHERE email = ?`, email)
}

func (r *UserRepo) one(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// SetExamDate updates the exam date of a user.
func (r *UserRepo) SetExamDate(ctx context.Context, id int64, examDate string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET exam_date = ? WHERE id = ?`, examDate, id)
	if err != nil {
		return fmt.Errorf("update exam date: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
