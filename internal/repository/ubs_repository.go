package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// UBSRepo persists the diagnosis aggregate: the ubs row plus its one-to-one
// territory profile and needs.  Every owner-scoped lookup treats rows of
// other owners and soft-deleted rows as ErrNotFound.
type UBSRepo struct{ DB *sql.DB }

func NewUBSRepo(db *sql.DB) *UBSRepo { return &UBSRepo{DB: db} }

const ubsColumns = `id, owner_id, name, report_name, cnes, coverage_area, active_residents, microareas,
registered_families, households, rural_households, inaugurated_on, last_renovated_on, description,
notes, other_services, status, submitted_at, submitted_by, is_deleted, created_at, updated_at`

func scanUBS(row interface{ Scan(...any) error }) (model.UBS, error) {
	var (
		u      model.UBS
		status string
	)
	err := row.Scan(&u.ID, &u.OwnerID, &u.Name, &u.ReportName, &u.CNES, &u.CoverageArea,
		&u.ActiveResidents, &u.Microareas, &u.RegisteredFamilies, &u.Households, &u.RuralHouseholds,
		&u.InauguratedOn, &u.LastRenovatedOn, &u.Description, &u.Notes, &u.OtherServices,
		&status, &u.SubmittedAt, &u.SubmittedBy, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.UBS{}, err
	}
	u.Status = model.UBSStatus(status)
	return u, nil
}

// Create inserts a DRAFT diagnosis for u.OwnerID and reloads it.
func (r *UBSRepo) Create(ctx context.Context, u *model.UBS) error {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO ubs
(owner_id, name, report_name, cnes, coverage_area, active_residents, microareas, registered_families,
 households, rural_households, inaugurated_on, last_renovated_on, description, notes, other_services, status)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.OwnerID, u.Name, u.ReportName, u.CNES, u.CoverageArea, u.ActiveResidents, u.Microareas,
		u.RegisteredFamilies, u.Households, u.RuralHouseholds, u.InauguratedOn, u.LastRenovatedOn,
		u.Description, u.Notes, u.OtherServices, string(model.UBSDraft))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetOwned(ctx, uint64(id), u.OwnerID)
	if err != nil {
		return err
	}
	*u = created
	return nil
}

// GetOwned fetches a live diagnosis belonging to ownerID.
func (r *UBSRepo) GetOwned(ctx context.Context, id, ownerID uint64) (model.UBS, error) {
	u, err := scanUBS(r.DB.QueryRowContext(ctx,
		"SELECT "+ubsColumns+" FROM ubs WHERE id=? AND owner_id=? AND is_deleted=0 LIMIT 1", id, ownerID))
	return u, notFound(err)
}

// Exists reports whether a live ubs row with this id exists, whoever owns it.
func (r *UBSRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM ubs WHERE id=? AND is_deleted=0)", id).Scan(&ok)
	return ok, err
}

// ListOwned returns one page of the owner's diagnoses, newest first, and
// the total count.
func (r *UBSRepo) ListOwned(ctx context.Context, ownerID uint64, limit, offset int) ([]model.UBS, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ubs WHERE owner_id=? AND is_deleted=0", ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ubsColumns+" FROM ubs WHERE owner_id=? AND is_deleted=0 ORDER BY id DESC LIMIT ? OFFSET ?",
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.UBS{}
	for rows.Next() {
		u, err := scanUBS(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Update writes the editable general fields of u.
func (r *UBSRepo) Update(ctx context.Context, u *model.UBS) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE ubs SET
name=?, report_name=?, cnes=?, coverage_area=?, active_residents=?, microareas=?, registered_families=?,
households=?, rural_households=?, inaugurated_on=?, last_renovated_on=?, description=?, notes=?, other_services=?
WHERE id=? AND owner_id=? AND is_deleted=0`,
		u.Name, u.ReportName, u.CNES, u.CoverageArea, u.ActiveResidents, u.Microareas, u.RegisteredFamilies,
		u.Households, u.RuralHouseholds, u.InauguratedOn, u.LastRenovatedOn, u.Description, u.Notes, u.OtherServices,
		u.ID, u.OwnerID)
	if err != nil {
		return err
	}
	return affected(res)
}

// MarkSubmitted flips a diagnosis to SUBMITTED.
func (r *UBSRepo) MarkSubmitted(ctx context.Context, id, ownerID uint64, by uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE ubs SET status=?, submitted_at=?, submitted_by=? WHERE id=? AND owner_id=? AND is_deleted=0",
		string(model.UBSSubmitted), at.UTC(), by, id, ownerID)
	if err != nil {
		return err
	}
	return affected(res)
}

// SoftDelete hides a diagnosis from every owner-scoped lookup.  Its rows
// stay in place.
func (r *UBSRepo) SoftDelete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE ubs SET is_deleted=1 WHERE id=? AND owner_id=? AND is_deleted=0", id, ownerID)
	if err != nil {
		return err
	}
	return affected(res)
}

// GetTerritory returns the territory profile of a unit.
func (r *UBSRepo) GetTerritory(ctx context.Context, ubsID uint64) (model.TerritoryProfile, error) {
	var t model.TerritoryProfile
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, ubs_id, description, strengths, vulnerabilities FROM territory_profiles WHERE ubs_id=? LIMIT 1", ubsID).
		Scan(&t.ID, &t.UBSID, &t.Description, &t.Strengths, &t.Vulnerabilities)
	return t, notFound(err)
}

// UpsertTerritory inserts or replaces the territory profile of t.UBSID.
func (r *UBSRepo) UpsertTerritory(ctx context.Context, t *model.TerritoryProfile) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO territory_profiles (ubs_id, description, strengths, vulnerabilities)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE description=VALUES(description), strengths=VALUES(strengths), vulnerabilities=VALUES(vulnerabilities)`,
		t.UBSID, t.Description, t.Strengths, t.Vulnerabilities)
	if err != nil {
		return err
	}
	saved, err := r.GetTerritory(ctx, t.UBSID)
	if err != nil {
		return err
	}
	*t = saved
	return nil
}

// GetNeeds returns the needs record of a unit.
func (r *UBSRepo) GetNeeds(ctx context.Context, ubsID uint64) (model.UBSNeeds, error) {
	var n model.UBSNeeds
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, ubs_id, identified_problems, equipment_needs, agent_needs, infrastructure_needs FROM ubs_needs WHERE ubs_id=? LIMIT 1", ubsID).
		Scan(&n.ID, &n.UBSID, &n.IdentifiedProblems, &n.EquipmentNeeds, &n.AgentNeeds, &n.InfrastructureNeeds)
	return n, notFound(err)
}

// UpsertNeeds inserts or replaces the needs record of n.UBSID.
func (r *UBSRepo) UpsertNeeds(ctx context.Context, n *model.UBSNeeds) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO ubs_needs (ubs_id, identified_problems, equipment_needs, agent_needs, infrastructure_needs)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE identified_problems=VALUES(identified_problems), equipment_needs=VALUES(equipment_needs),
agent_needs=VALUES(agent_needs), infrastructure_needs=VALUES(infrastructure_needs)`,
		n.UBSID, n.IdentifiedProblems, n.EquipmentNeeds, n.AgentNeeds, n.InfrastructureNeeds)
	if err != nil {
		return err
	}
	saved, err := r.GetNeeds(ctx, n.UBSID)
	if err != nil {
		return err
	}
	*n = saved
	return nil
}
