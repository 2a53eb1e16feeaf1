package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/appointmint/apptbot/internal/db"
	"github.com/appointmint/apptbot/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo appointments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sqlDB, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo appointments...")

		if err := seedAppointments(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

// seedAppointments inserts 3 deterministic demo appointments (idempotent).
// One lands in the reminder window, one in the follow-up window, one is a
// plain upcoming appointment.
func seedAppointments(dbx *sqlx.DB) error {
	now := time.Now().Truncate(time.Minute)
	appointments := []model.Appointment{
		{
			ID:           "01H00000000000000000000DM1",
			CustomerName: "Demo Customer",
			Recipient:    "whatsapp:+15550000001",
			Service:      "Haircut",
			ScheduledAt:  now.Add(24 * time.Hour),
		},
		{
			ID:           "01H00000000000000000000DM2",
			CustomerName: "Demo Customer",
			Recipient:    "whatsapp:+15550000002",
			Service:      "Consultation",
			ScheduledAt:  now.Add(-23 * time.Hour),
		},
		{
			ID:           "01H00000000000000000000DM3",
			CustomerName: "Demo Customer",
			Recipient:    "whatsapp:+15550000003",
			Service:      "Haircut",
			ScheduledAt:  now.Add(7 * 24 * time.Hour),
		},
	}

	// idempotent upsert based on id (PK): re-running moves the demo rows back
	// into their windows and rearms the flags
	const q = `
INSERT INTO appointments
    (id, customer_name, recipient, service, scheduled_at, reminder_sent, follow_up_sent, created_at)
VALUES
    (?, ?, ?, ?, ?, FALSE, FALSE, NOW())
ON DUPLICATE KEY UPDATE
    customer_name  = VALUES(customer_name),
    recipient      = VALUES(recipient),
    service        = VALUES(service),
    scheduled_at   = VALUES(scheduled_at),
    reminder_sent  = FALSE,
    follow_up_sent = FALSE
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, a := range appointments {
		if _, err := tx.Exec(q, a.ID, a.CustomerName, a.Recipient, a.Service, a.ScheduledAt); err != nil {
			return fmt.Errorf("insert appointment %q: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit appointments: %w", err)
	}
	return nil
}
