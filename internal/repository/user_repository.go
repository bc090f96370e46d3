package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/utils"
)

// UserRepo persists accounts in the `users` table, including the login
// guard's failed_attempts and locked_until columns.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,cpf,role,failed_attempts,locked_until,is_active,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u      model.User
		role   string
		locked sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CPF, &role,
		&u.FailedAttempts, &locked, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if locked.Valid {
		t := locked.Time
		u.LockedUntil = &t
	}
	return u, nil
}

// NewUser is the input of Create.  CPF must already be digits only.
type NewUser struct {
	Name     string
	Email    string
	Password string
	CPF      string
	Role     model.Role
}

// Create hashes the password, inserts the account and returns its ID.
// A taken email or CPF yields ErrEmailExists or ErrCPFExists.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, cpf, role) VALUES (?,?,?,?,?)",
		strings.TrimSpace(in.Name), email, hash, in.CPF, string(in.Role))
	if err != nil {
		if msg, ok := duplicateKey(err); ok {
			if strings.Contains(msg, "cpf") {
				return 0, ErrCPFExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// SaveLoginState writes the guard's counter and lockout for one account.
func (r *UserRepo) SaveLoginState(ctx context.Context, id uint64, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET failed_attempts=?, locked_until=? WHERE id=?",
		failedAttempts, lockedUntil, id)
	return err
}

// SetRole changes the role of an account.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role model.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", string(role), id)
	if err != nil {
		return err
	}
	return affected(res)
}

// SetActive enables or disables an account.  Re-enabling also clears any
// lockout left from before.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	q := "UPDATE users SET is_active=? WHERE id=?"
	if active {
		q = "UPDATE users SET is_active=?, failed_attempts=0, locked_until=NULL WHERE id=?"
	}
	res, err := r.DB.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// ListActiveByRole returns active accounts of one role ordered by name.
func (r *UserRepo) ListActiveByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? AND is_active=1 ORDER BY name, id", string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
