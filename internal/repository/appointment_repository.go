package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// AppointmentRepo persists appointments.  scheduled_at is DATETIME(6) in
// UTC so that slot matching is exact timestamp equality.
type AppointmentRepo struct{ DB *sql.DB }

func NewAppointmentRepo(db *sql.DB) *AppointmentRepo { return &AppointmentRepo{DB: db} }

const appointmentColumns = "a.id, a.patient_id, a.professional_id, a.scheduled_at, a.status, a.notes, a.confirmed_at, a.created_at, a.updated_at"

func scanAppointment(row interface{ Scan(...any) error }, extra ...any) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	dest := append([]any{&a.ID, &a.PatientID, &a.ProfessionalID, &a.ScheduledAt, &status, &a.Notes, &a.ConfirmedAt, &a.CreatedAt, &a.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.AppointmentStatus(status)
	return a, nil
}

// holdingStatusFilter renders "status IN (?,?)" for the slot-holding
// statuses together with its arguments.
func holdingStatusFilter(column string) (string, []any) {
	marks := make([]string, len(model.SlotHoldingStatuses))
	args := make([]any, len(model.SlotHoldingStatuses))
	for i, s := range model.SlotHoldingStatuses {
		marks[i] = "?"
		args[i] = string(s)
	}
	return column + " IN (" + strings.Join(marks, ",") + ")", args
}

// ExistsLiveAt reports whether another slot-holding appointment of the
// professional sits at exactly at.  Ids start at 1, so excludeID zero
// excludes nothing.
func (r *AppointmentRepo) ExistsLiveAt(ctx context.Context, professionalID uint64, at time.Time, excludeID uint64) (bool, error) {
	filter, statusArgs := holdingStatusFilter("status")
	q := "SELECT EXISTS(SELECT 1 FROM appointments WHERE professional_id=? AND scheduled_at=? AND " + filter + " AND id<>?)"
	args := append([]any{professionalID, at.UTC()}, statusArgs...)
	args = append(args, excludeID)
	var exists bool
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a and fills in its id and timestamps.
func (r *AppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO appointments (patient_id, professional_id, scheduled_at, status, notes) VALUES (?,?,?,?,?)",
		a.PatientID, a.ProfessionalID, a.ScheduledAt.UTC(), string(a.Status), a.Notes)
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
	*a = created
	return nil
}

// GetByID fetches one appointment.
func (r *AppointmentRepo) GetByID(ctx context.Context, id uint64) (model.Appointment, error) {
	a, err := scanAppointment(r.DB.QueryRowContext(ctx,
		"SELECT "+appointmentColumns+" FROM appointments a WHERE a.id=? LIMIT 1", id))
	return a, notFound(err)
}

// Update writes the mutable columns of a in place.
func (r *AppointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE appointments SET scheduled_at=?, status=?, notes=?, confirmed_at=? WHERE id=?",
		a.ScheduledAt.UTC(), string(a.Status), a.Notes, a.ConfirmedAt, a.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

// ListByPatient returns the patient's appointments, newest date-time first,
// with the professional's name and cargo.
func (r *AppointmentRepo) ListByPatient(ctx context.Context, patientID uint64) ([]model.AppointmentView, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+appointmentColumns+`, u.name, p.cargo
FROM appointments a
JOIN professionals p ON p.id = a.professional_id
JOIN users u ON u.id = p.user_id
WHERE a.patient_id = ?
ORDER BY a.scheduled_at DESC, a.id DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AppointmentView{}
	for rows.Next() {
		var v model.AppointmentView
		a, err := scanAppointment(rows, &v.ProfessionalName, &v.ProfessionalCargo)
		if err != nil {
			return nil, err
		}
		v.Appointment = a
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByProfessional returns the agenda between from and to inclusive,
// oldest first, with the patient's name.
func (r *AppointmentRepo) ListByProfessional(ctx context.Context, professionalID uint64, from, to time.Time) ([]model.AppointmentView, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+appointmentColumns+`, u.name
FROM appointments a
JOIN users u ON u.id = a.patient_id
WHERE a.professional_id = ? AND a.scheduled_at BETWEEN ? AND ?
ORDER BY a.scheduled_at, a.id`, professionalID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AppointmentView{}
	for rows.Next() {
		var v model.AppointmentView
		a, err := scanAppointment(rows, &v.PatientName)
		if err != nil {
			return nil, err
		}
		v.Appointment = a
		out = append(out, v)
	}
	return out, rows.Err()
}
