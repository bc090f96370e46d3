package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// LoginAttemptRepo is the append-only `login_attempts` audit log.
type LoginAttemptRepo struct{ DB *sql.DB }

func NewLoginAttemptRepo(db *sql.DB) *LoginAttemptRepo { return &LoginAttemptRepo{DB: db} }

// maxIPLen matches login_attempts.ip_address (VARCHAR(45), an IPv6 literal).
const maxIPLen = 45

// Append inserts one attempt.  Rows are never updated.
func (r *LoginAttemptRepo) Append(ctx context.Context, a model.LoginAttempt) error {
	ip := a.IPAddress
	if len(ip) > maxIPLen {
		ip = ip[:maxIPLen]
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO login_attempts (email, ip_address, success, reason) VALUES (?,?,?,?)",
		strings.ToLower(strings.TrimSpace(a.Email)), ip, a.Success, a.Reason)
	return err
}

// ListByEmail returns the newest attempts for an address, at most limit.
func (r *LoginAttemptRepo) ListByEmail(ctx context.Context, email string, limit int) ([]model.LoginAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, email, ip_address, success, reason, created_at FROM login_attempts WHERE email=? ORDER BY created_at DESC, id DESC LIMIT ?",
		strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.LoginAttempt{}
	for rows.Next() {
		var a model.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Email, &a.IPAddress, &a.Success, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
