package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// ProfessionalRepo persists bookable provider profiles.
type ProfessionalRepo struct{ DB *sql.DB }

func NewProfessionalRepo(db *sql.DB) *ProfessionalRepo { return &ProfessionalRepo{DB: db} }

const professionalColumns = "id, user_id, cargo, registry, ubs_id, is_active, created_at"

func scanProfessional(row interface{ Scan(...any) error }) (model.Professional, error) {
	var p model.Professional
	err := row.Scan(&p.ID, &p.UserID, &p.Cargo, &p.Registry, &p.UBSID, &p.IsActive, &p.CreatedAt)
	return p, err
}

// CreateWithRole inserts a profile and promotes its account to PROFISSIONAL
// in one transaction.  A second profile for the account is ErrConflict and a
// taken registry number is ErrRegistryExists.
func (r *ProfessionalRepo) CreateWithRole(ctx context.Context, p *model.Professional) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO professionals (user_id, cargo, registry, ubs_id) VALUES (?,?,?,?)",
		p.UserID, strings.TrimSpace(p.Cargo), strings.TrimSpace(p.Registry), p.UBSID)
	if err != nil {
		if msg, ok := duplicateKey(err); ok {
			if strings.Contains(msg, "registry") {
				return ErrRegistryExists
			}
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", string(model.RoleProfissional), p.UserID); err != nil {
		return err
	}
	created, err := scanProfessional(tx.QueryRowContext(ctx,
		"SELECT "+professionalColumns+" FROM professionals WHERE id=?", id))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	*p = created
	return nil
}

// GetByID fetches a profile by id.
func (r *ProfessionalRepo) GetByID(ctx context.Context, id uint64) (model.Professional, error) {
	p, err := scanProfessional(r.DB.QueryRowContext(ctx,
		"SELECT "+professionalColumns+" FROM professionals WHERE id=? LIMIT 1", id))
	return p, notFound(err)
}

// GetByUserID fetches the profile of an account.
func (r *ProfessionalRepo) GetByUserID(ctx context.Context, userID uint64) (model.Professional, error) {
	p, err := scanProfessional(r.DB.QueryRowContext(ctx,
		"SELECT "+professionalColumns+" FROM professionals WHERE user_id=? LIMIT 1", userID))
	return p, notFound(err)
}

// ListActive returns active professionals with active accounts, optionally
// restricted to one cargo, ordered by name.
func (r *ProfessionalRepo) ListActive(ctx context.Context, cargo string) ([]model.ProfessionalSummary, error) {
	q := `SELECT p.id, u.name, p.cargo
FROM professionals p JOIN users u ON u.id = p.user_id
WHERE p.is_active = 1 AND u.is_active = 1`
	args := []any{}
	if c := strings.TrimSpace(cargo); c != "" {
		q += " AND p.cargo = ?"
		args = append(args, c)
	}
	q += " ORDER BY u.name, p.id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ProfessionalSummary{}
	for rows.Next() {
		var s model.ProfessionalSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Cargo); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Specialties returns the distinct cargos of active professionals, sorted.
func (r *ProfessionalRepo) Specialties(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT DISTINCT cargo FROM professionals WHERE is_active = 1 ORDER BY cargo")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
