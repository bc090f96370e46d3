package model

import "time"

// User represents an account record as stored in the `users` table.
// Besides identity and credentials it carries the login guard state:
// FailedAttempts counts consecutive failed logins since the last success or
// lockout, and LockedUntil is set while the account is temporarily locked.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Name           – display name.
//  Email          – unique, lower-cased email address.
//  PasswordHash   – bcrypt hashed password.
//  CPF            – unique taxpayer number, digits only.
//  Role           – one of the Role constants.
//  FailedAttempts – consecutive failed logins (reset on success/lockout).
//  LockedUntil    – lockout expiry; nil when not locked.
//  IsActive       – inactive accounts can never log in.
type User struct {
	ID             uint64     `json:"id"`         // users.id
	Name           string     `json:"name"`       // users.name
	Email          string     `json:"email"`      // users.email
	PasswordHash   string     `json:"-"`          // users.password_hash
	CPF            string     `json:"cpf"`        // users.cpf
	Role           Role       `json:"role"`       // users.role
	FailedAttempts int        `json:"-"`          // users.failed_attempts
	LockedUntil    *time.Time `json:"-"`          // users.locked_until (nullable)
	IsActive       bool       `json:"is_active"`  // users.is_active
	CreatedAt      time.Time  `json:"created_at"` // users.created_at
	UpdatedAt      time.Time  `json:"updated_at"` // users.updated_at
}

// LockedAt reports whether the account is locked at instant now.  A lockout
// whose expiry is equal to now is already over.
func (u User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// LoginAttempt is one row of the append-only `login_attempts` audit log.
// Rows are inserted for every login attempt and never updated.
type LoginAttempt struct {
	ID        uint64    `json:"id"`         // login_attempts.id
	Email     string    `json:"email"`      // login_attempts.email
	IPAddress string    `json:"ip_address"` // login_attempts.ip_address
	Success   bool      `json:"success"`    // login_attempts.success
	Reason    string    `json:"reason"`     // login_attempts.reason
	CreatedAt time.Time `json:"created_at"` // login_attempts.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored, only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Professional links an account to a bookable provider profile in the
// `professionals` table.
type Professional struct {
	ID        uint64    `json:"id"`         // professionals.id
	UserID    uint64    `json:"user_id"`    // professionals.user_id
	Cargo     string    `json:"cargo"`      // professionals.cargo (specialty)
	Registry  string    `json:"registry"`   // professionals.registry (unique)
	UBSID     *uint64   `json:"ubs_id"`     // professionals.ubs_id (nullable)
	IsActive  bool      `json:"is_active"`  // professionals.is_active
	CreatedAt time.Time `json:"created_at"` // professionals.created_at
}

// ProfessionalSummary is the public listing shape of an active professional.
type ProfessionalSummary struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Cargo string `json:"cargo"`
}
