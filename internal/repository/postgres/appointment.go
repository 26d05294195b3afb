package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pedicare/clinic-api/internal/model"
	"github.com/pedicare/clinic-api/internal/repository"
)

type appointmentRepository struct {
	*BaseRepository
}

func NewAppointmentRepository(base *BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: base}
}

// Create inserts the appointment only if no non-cancelled appointment holds
// the same (date, time) slot. The conditional insert is a single statement,
// so two concurrent bookings for one slot cannot both commit; the partial
// unique index on (date, "time") WHERE status != 'cancelled' backs it up.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, user_id, patient_name, patient_age,
			date, "time", category, status,
			created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE date = $5 AND "time" = $6 AND status != 'cancelled'
		)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.UserID,
		appointment.PatientName,
		appointment.PatientAge,
		appointment.Date,
		appointment.Time,
		appointment.Category,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrSlotTaken
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, user_id, patient_name, patient_age,
			   date, "time", category, status,
			   created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET date = $1, "time" = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appointment.Date,
		appointment.Time,
		appointment.Status,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}
	return nil
}

func (r *appointmentRepository) FindConflicting(ctx context.Context, date, timeStr string) (*model.Appointment, error) {
	query := `
		SELECT id, user_id, patient_name, patient_age,
			   date, "time", category, status,
			   created_at, updated_at
		FROM appointments
		WHERE date = $1 AND "time" = $2 AND status != 'cancelled'
		LIMIT 1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, date, timeStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conflicting appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListUpcoming(ctx context.Context, date string) ([]*model.Appointment, error) {
	query := `
		SELECT id, user_id, patient_name, patient_age,
			   date, "time", category, status,
			   created_at, updated_at
		FROM appointments
		WHERE status != 'cancelled'
	`
	args := []interface{}{}
	if date != "" {
		query += " AND date = $1"
		args = append(args, date)
	}
	query += ` ORDER BY date ASC, "time" ASC`

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT id, user_id, patient_name, patient_age,
			   date, "time", category, status,
			   created_at, updated_at
		FROM appointments
		WHERE user_id = $1 AND status != 'cancelled'
		ORDER BY date ASC
	`
	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListAllWithOwners(ctx context.Context) ([]*model.AppointmentWithOwner, error) {
	query := `
		SELECT a.id, a.user_id, a.patient_name, a.patient_age,
			   a.date, a."time", a.category, a.status,
			   a.created_at, a.updated_at,
			   u.name AS owner_name, u.email AS owner_email, u.phone AS owner_phone
		FROM appointments a
		JOIN users u ON u.id = a.user_id
		WHERE a.status != 'cancelled'
		ORDER BY a.date ASC, a."time" ASC
	`
	appointments := []*model.AppointmentWithOwner{}
	if err := r.db.SelectContext(ctx, &appointments, query); err != nil {
		return nil, fmt.Errorf("failed to list all appointments: %w", err)
	}
	return appointments, nil
}
