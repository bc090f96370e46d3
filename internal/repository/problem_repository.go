package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// ProblemRepo persists GUT problems and their intervention plans.  Lookups
// by problem or intervention id join up to the owning ubs row so that
// another owner's rows read as ErrNotFound.
type ProblemRepo struct{ DB *sql.DB }

func NewProblemRepo(db *sql.DB) *ProblemRepo { return &ProblemRepo{DB: db} }

const problemColumns = "p.id, p.ubs_id, p.title, p.description, p.gut_gravity, p.gut_urgency, p.gut_tendency, p.gut_score, p.is_priority, p.created_at, p.updated_at"

func scanProblem(row interface{ Scan(...any) error }) (model.Problem, error) {
	var p model.Problem
	err := row.Scan(&p.ID, &p.UBSID, &p.Title, &p.Description, &p.Gravity, &p.Urgency, &p.Tendency,
		&p.Score, &p.IsPriority, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts p with its score recomputed.
func (r *ProblemRepo) Create(ctx context.Context, p *model.Problem) error {
	p.Score = model.GUTScore(p.Gravity, p.Urgency, p.Tendency)
	res, err := r.DB.ExecContext(ctx, `INSERT INTO problems
(ubs_id, title, description, gut_gravity, gut_urgency, gut_tendency, gut_score, is_priority)
VALUES (?,?,?,?,?,?,?,?)`,
		p.UBSID, p.Title, p.Description, p.Gravity, p.Urgency, p.Tendency, p.Score, p.IsPriority)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanProblem(r.DB.QueryRowContext(ctx, "SELECT "+problemColumns+" FROM problems p WHERE p.id=?", id))
	if err != nil {
		return err
	}
	*p = created
	return nil
}

// GetOwned fetches a problem whose unit belongs to ownerID.
func (r *ProblemRepo) GetOwned(ctx context.Context, id, ownerID uint64) (model.Problem, error) {
	p, err := scanProblem(r.DB.QueryRowContext(ctx, `SELECT `+problemColumns+`
FROM problems p JOIN ubs u ON u.id = p.ubs_id
WHERE p.id=? AND u.owner_id=? AND u.is_deleted=0 LIMIT 1`, id, ownerID))
	return p, notFound(err)
}

// ListByUBS returns a unit's problems, highest GUT score first, then by id.
func (r *ProblemRepo) ListByUBS(ctx context.Context, ubsID uint64) ([]model.Problem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+problemColumns+" FROM problems p WHERE p.ubs_id=? ORDER BY p.gut_score DESC, p.id", ubsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes p with its score recomputed.
func (r *ProblemRepo) Update(ctx context.Context, p *model.Problem) error {
	p.Score = model.GUTScore(p.Gravity, p.Urgency, p.Tendency)
	res, err := r.DB.ExecContext(ctx, `UPDATE problems SET
title=?, description=?, gut_gravity=?, gut_urgency=?, gut_tendency=?, gut_score=?, is_priority=?
WHERE id=?`,
		p.Title, p.Description, p.Gravity, p.Urgency, p.Tendency, p.Score, p.IsPriority, p.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

// Delete removes a problem; its interventions go with it (ON DELETE CASCADE).
func (r *ProblemRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM problems WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

const interventionColumns = "i.id, i.problem_id, i.objective, i.goals, i.responsible, i.status, i.created_at, i.updated_at"

func scanIntervention(row interface{ Scan(...any) error }) (model.Intervention, error) {
	var (
		iv     model.Intervention
		status string
	)
	err := row.Scan(&iv.ID, &iv.ProblemID, &iv.Objective, &iv.Goals, &iv.Responsible, &status, &iv.CreatedAt, &iv.UpdatedAt)
	iv.Status = model.InterventionStatus(status)
	return iv, err
}

// CreateIntervention inserts a plan for iv.ProblemID.
func (r *ProblemRepo) CreateIntervention(ctx context.Context, iv *model.Intervention) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO interventions (problem_id, objective, goals, responsible, status) VALUES (?,?,?,?,?)",
		iv.ProblemID, iv.Objective, iv.Goals, iv.Responsible, string(iv.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanIntervention(r.DB.QueryRowContext(ctx, "SELECT "+interventionColumns+" FROM interventions i WHERE i.id=?", id))
	if err != nil {
		return err
	}
	*iv = created
	return nil
}

// ListInterventions returns a problem's plans in creation order.
func (r *ProblemRepo) ListInterventions(ctx context.Context, problemID uint64) ([]model.Intervention, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+interventionColumns+" FROM interventions i WHERE i.problem_id=? ORDER BY i.id", problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Intervention{}
	for rows.Next() {
		iv, err := scanIntervention(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// GetInterventionOwned fetches a plan whose unit belongs to ownerID.
func (r *ProblemRepo) GetInterventionOwned(ctx context.Context, id, ownerID uint64) (model.Intervention, error) {
	iv, err := scanIntervention(r.DB.QueryRowContext(ctx, `SELECT `+interventionColumns+`
FROM interventions i
JOIN problems p ON p.id = i.problem_id
JOIN ubs u ON u.id = p.ubs_id
WHERE i.id=? AND u.owner_id=? AND u.is_deleted=0 LIMIT 1`, id, ownerID))
	return iv, notFound(err)
}

// UpdateIntervention writes the mutable columns of iv.
func (r *ProblemRepo) UpdateIntervention(ctx context.Context, iv *model.Intervention) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE interventions SET objective=?, goals=?, responsible=?, status=? WHERE id=?",
		iv.Objective, iv.Goals, iv.Responsible, string(iv.Status), iv.ID)
	if err != nil {
		return err
	}
	return affected(res)
}
