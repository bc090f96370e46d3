package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// BlockRepo persists schedule blocks.  There is no update statement:
// blocks are created and deleted only.
type BlockRepo struct{ DB *sql.DB }

func NewBlockRepo(db *sql.DB) *BlockRepo { return &BlockRepo{DB: db} }

const blockColumns = "id, professional_id, starts_at, ends_at, reason, created_at"

func scanBlock(row interface{ Scan(...any) error }) (model.ScheduleBlock, error) {
	var b model.ScheduleBlock
	err := row.Scan(&b.ID, &b.ProfessionalID, &b.StartsAt, &b.EndsAt, &b.Reason, &b.CreatedAt)
	return b, err
}

// ExistsCovering reports whether any block of the professional contains at,
// both ends included.
func (r *BlockRepo) ExistsCovering(ctx context.Context, professionalID uint64, at time.Time) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schedule_blocks WHERE professional_id=? AND starts_at<=? AND ends_at>=?)",
		professionalID, at.UTC(), at.UTC()).Scan(&exists)
	return exists, err
}

// Create inserts b and fills in its id and created_at.
func (r *BlockRepo) Create(ctx context.Context, b *model.ScheduleBlock) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO schedule_blocks (professional_id, starts_at, ends_at, reason) VALUES (?,?,?,?)",
		b.ProfessionalID, b.StartsAt.UTC(), b.EndsAt.UTC(), b.Reason)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = created
	return nil
}

// GetByID fetches one block.
func (r *BlockRepo) GetByID(ctx context.Context, id uint64) (model.ScheduleBlock, error) {
	b, err := scanBlock(r.DB.QueryRowContext(ctx,
		"SELECT "+blockColumns+" FROM schedule_blocks WHERE id=? LIMIT 1", id))
	return b, notFound(err)
}

// Delete removes a block.
func (r *BlockRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM schedule_blocks WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

// ListByProfessional returns a professional's blocks ordered by start.
func (r *BlockRepo) ListByProfessional(ctx context.Context, professionalID uint64) ([]model.ScheduleBlock, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+blockColumns+" FROM schedule_blocks WHERE professional_id=? ORDER BY starts_at, id", professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScheduleBlock{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
