package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/appointmint/apptbot/internal/model"
	"github.com/jmoiron/sqlx"
)

// ErrAppointmentNotFound is returned when a lookup or delete matches no row.
var ErrAppointmentNotFound = errors.New("appointment not found")

// AppointmentsRepository defines persistence for the appointments table.
// The sent flags only ever move false -> true; nothing resets them.
type AppointmentsRepository interface {
	Create(ctx context.Context, a model.Appointment) error
	NextUpcoming(ctx context.Context, recipient string, after time.Time) (*model.Appointment, error)
	Delete(ctx context.Context, id string) error
	DueForReminder(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	DueForFollowUp(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	MarkReminderSent(ctx context.Context, id string) error
	MarkFollowUpSent(ctx context.Context, id string) error
}

type AppointmentsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAppointmentsRepository(db *sqlx.DB) *AppointmentsRepositoryImpl {
	return &AppointmentsRepositoryImpl{db: db}
}

var _ AppointmentsRepository = (*AppointmentsRepositoryImpl)(nil)

// Create inserts a new appointment with both sent flags off.
func (r *AppointmentsRepositoryImpl) Create(ctx context.Context, a model.Appointment) error {
	const q = `
		INSERT INTO appointments
		    (id, customer_name, recipient, service, scheduled_at, reminder_sent, follow_up_sent, created_at)
		VALUES
		    (?,  ?,             ?,         ?,       ?,            FALSE,         FALSE,          NOW())
	`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.CustomerName, a.Recipient, a.Service, a.ScheduledAt)
	return err
}

// NextUpcoming returns the recipient's soonest appointment strictly after the
// given instant, or ErrAppointmentNotFound.
func (r *AppointmentsRepositoryImpl) NextUpcoming(ctx context.Context, recipient string, after time.Time) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.GetContext(ctx, &a, `
		SELECT id, customer_name, recipient, service, scheduled_at, reminder_sent, follow_up_sent, created_at
		  FROM appointments
		 WHERE recipient = ? AND scheduled_at > ?
		 ORDER BY scheduled_at ASC
		 LIMIT 1
	`, recipient, after)
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentsRepositoryImpl) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// DueForReminder lists appointments scheduled inside [from, to] whose
// reminder has not gone out yet.
func (r *AppointmentsRepositoryImpl) DueForReminder(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	const q = `
		SELECT id, customer_name, recipient, service, scheduled_at, reminder_sent, follow_up_sent, created_at
		  FROM appointments
		 WHERE reminder_sent = FALSE AND scheduled_at BETWEEN ? AND ?
		 ORDER BY scheduled_at ASC
	`
	var out []model.Appointment
	if err := r.db.SelectContext(ctx, &out, q, from, to); err != nil {
		return nil, err
	}
	return out, nil
}

// DueForFollowUp lists appointments that finished inside [from, to] and have
// not been followed up.
func (r *AppointmentsRepositoryImpl) DueForFollowUp(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	const q = `
		SELECT id, customer_name, recipient, service, scheduled_at, reminder_sent, follow_up_sent, created_at
		  FROM appointments
		 WHERE follow_up_sent = FALSE AND scheduled_at BETWEEN ? AND ?
		 ORDER BY scheduled_at ASC
	`
	var out []model.Appointment
	if err := r.db.SelectContext(ctx, &out, q, from, to); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AppointmentsRepositoryImpl) MarkReminderSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE appointments SET reminder_sent = TRUE WHERE id = ?`, id)
	return err
}

func (r *AppointmentsRepositoryImpl) MarkFollowUpSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE appointments SET follow_up_sent = TRUE WHERE id = ?`, id)
	return err
}
