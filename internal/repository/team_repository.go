package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// TeamRepo persists microareas and the community agents assigned to them.
type TeamRepo struct{ DB *sql.DB }

func NewTeamRepo(db *sql.DB) *TeamRepo { return &TeamRepo{DB: db} }

const microareaColumns = "id, ubs_id, name, population, families, status, created_at, updated_at"

func scanMicroarea(row interface{ Scan(...any) error }) (model.Microarea, error) {
	var (
		m      model.Microarea
		status string
	)
	err := row.Scan(&m.ID, &m.UBSID, &m.Name, &m.Population, &m.Families, &status, &m.CreatedAt, &m.UpdatedAt)
	m.Status = model.MicroareaStatus(status)
	return m, err
}

// CreateMicroarea inserts m and reloads it.
func (r *TeamRepo) CreateMicroarea(ctx context.Context, m *model.Microarea) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO microareas (ubs_id, name, population, families, status) VALUES (?,?,?,?,?)",
		m.UBSID, m.Name, m.Population, m.Families, string(m.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetMicroarea(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = created
	return nil
}

// GetMicroarea fetches one microarea.
func (r *TeamRepo) GetMicroarea(ctx context.Context, id uint64) (model.Microarea, error) {
	m, err := scanMicroarea(r.DB.QueryRowContext(ctx,
		"SELECT "+microareaColumns+" FROM microareas WHERE id=? LIMIT 1", id))
	return m, notFound(err)
}

// ListMicroareas returns the microareas of one unit, or of all units when
// ubsID is zero, ordered by name.
func (r *TeamRepo) ListMicroareas(ctx context.Context, ubsID uint64) ([]model.Microarea, error) {
	q := "SELECT " + microareaColumns + " FROM microareas"
	args := []any{}
	if ubsID != 0 {
		q += " WHERE ubs_id=?"
		args = append(args, ubsID)
	}
	q += " ORDER BY name, id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Microarea{}
	for rows.Next() {
		m, err := scanMicroarea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMicroarea writes the mutable columns of m.
func (r *TeamRepo) UpdateMicroarea(ctx context.Context, m *model.Microarea) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE microareas SET name=?, population=?, families=?, status=? WHERE id=?",
		m.Name, m.Population, m.Families, string(m.Status), m.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

// MicroareaTotals aggregates population, families, count and uncovered
// count, for one unit or all units when ubsID is zero.
func (r *TeamRepo) MicroareaTotals(ctx context.Context, ubsID uint64) (population, families, total, uncovered int, err error) {
	q := `SELECT COALESCE(SUM(population),0), COALESCE(SUM(families),0), COUNT(*),
COALESCE(SUM(CASE WHEN status<>? THEN 1 ELSE 0 END),0) FROM microareas`
	args := []any{string(model.MicroareaCovered)}
	if ubsID != 0 {
		q += " WHERE ubs_id=?"
		args = append(args, ubsID)
	}
	err = r.DB.QueryRowContext(ctx, q, args...).Scan(&population, &families, &total, &uncovered)
	return
}

const agentSelect = `SELECT a.id, a.user_id, a.microarea_id, a.is_active, a.created_at, u.name, m.name
FROM agents a JOIN users u ON u.id = a.user_id JOIN microareas m ON m.id = a.microarea_id`

func scanAgent(row interface{ Scan(...any) error }) (model.AgentView, error) {
	var v model.AgentView
	err := row.Scan(&v.ID, &v.UserID, &v.MicroareaID, &v.IsActive, &v.CreatedAt, &v.UserName, &v.MicroareaName)
	return v, err
}

// CreateAgent assigns an account to a microarea.  An account already
// assigned is ErrConflict.
func (r *TeamRepo) CreateAgent(ctx context.Context, a *model.Agent) (model.AgentView, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO agents (user_id, microarea_id, is_active) VALUES (?,?,?)",
		a.UserID, a.MicroareaID, a.IsActive)
	if err != nil {
		if _, ok := duplicateKey(err); ok {
			return model.AgentView{}, ErrConflict
		}
		return model.AgentView{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.AgentView{}, err
	}
	return r.GetAgent(ctx, uint64(id))
}

// GetAgent fetches one agent with display names.
func (r *TeamRepo) GetAgent(ctx context.Context, id uint64) (model.AgentView, error) {
	v, err := scanAgent(r.DB.QueryRowContext(ctx, agentSelect+" WHERE a.id=? LIMIT 1", id))
	return v, notFound(err)
}

// ListAgents returns agents of one unit, or of all units when ubsID is zero.
func (r *TeamRepo) ListAgents(ctx context.Context, ubsID uint64) ([]model.AgentView, error) {
	q := agentSelect
	args := []any{}
	if ubsID != 0 {
		q += " WHERE m.ubs_id=?"
		args = append(args, ubsID)
	}
	q += " ORDER BY u.name, a.id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AgentView{}
	for rows.Next() {
		v, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateAgent moves an agent or toggles it.
func (r *TeamRepo) UpdateAgent(ctx context.Context, a *model.Agent) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE agents SET microarea_id=?, is_active=? WHERE id=?", a.MicroareaID, a.IsActive, a.ID)
	if err != nil {
		return err
	}
	return affected(res)
}
