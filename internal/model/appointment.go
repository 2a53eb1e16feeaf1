package model

import "time"

// Appointment is the DB entity persisted in appointments table.
type Appointment struct {
	ID           string    `db:"id"` // ULID
	CustomerName string    `db:"customer_name"`
	Recipient    string    `db:"recipient"` // whatsapp:+E164
	Service      string    `db:"service"`
	ScheduledAt  time.Time `db:"scheduled_at"`
	ReminderSent bool      `db:"reminder_sent"`
	FollowUpSent bool      `db:"follow_up_sent"`
	CreatedAt    time.Time `db:"created_at"`
}
