package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/appointmint/apptbot/internal/conversation"
	"github.com/appointmint/apptbot/internal/logger"
	"github.com/appointmint/apptbot/internal/metrics"
	"github.com/appointmint/apptbot/internal/model"
	"github.com/appointmint/apptbot/internal/repository"
)

// Reminder and follow-up windows around an appointment's scheduled time.
// The sweep interval is far smaller than the two-hour reminder span, so a
// late tick cannot skip past an appointment.
const (
	reminderWindowStart = 23 * time.Hour
	reminderWindowEnd   = 25 * time.Hour
	followUpWindow      = 24 * time.Hour
)

// Sender is the slice of the dispatcher the sweeper needs.
type Sender interface {
	Send(ctx context.Context, kind model.DeliveryKind, to, body string) (string, error)
}

// Sweeper periodically scans appointments and pushes due reminders and
// follow-ups. A flag is set only after its dispatch succeeded; if the
// process dies between send and flag write, the next tick repeats that one
// send (at-least-once, the flag is the dedup floor).
type Sweeper struct {
	Appts    repository.AppointmentsRepository
	Dispatch Sender
	Interval time.Duration

	now func() time.Time
}

func NewSweeper(appts repository.AppointmentsRepository, dispatch Sender, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{Appts: appts, Dispatch: dispatch, Interval: interval, now: time.Now}
}

// Run blocks until ctx is cancelled, running both passes on every tick.
// The passes share the tick so they never interleave on one appointment.
// Cancellation takes effect between passes: a pass already underway runs on
// a detached context, so a dispatch in flight is never cut off mid-send and
// still commits its flag.
func (s *Sweeper) Run(ctx context.Context) error {
	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	logger.Log.Info("sweeper started", zap.Duration("interval", s.Interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			passCtx := context.Background()
			s.SweepReminders(passCtx)
			s.SweepFollowUps(passCtx)
		}
	}
}

// SweepReminders notifies appointments sitting roughly a day out.
func (s *Sweeper) SweepReminders(ctx context.Context) {
	metrics.SweepRunsTotal.WithLabelValues("reminder").Inc()

	now := s.now()
	due, err := s.Appts.DueForReminder(ctx, now.Add(reminderWindowStart), now.Add(reminderWindowEnd))
	if err != nil {
		logger.Log.Error("reminder sweep query failed", zap.Error(err))
		return
	}

	for _, a := range due {
		body := conversation.ReminderText(a.Service, a.ScheduledAt)
		if _, err := s.Dispatch.Send(ctx, model.KindReminder, a.Recipient, body); err != nil {
			logger.Log.Error("reminder dispatch failed",
				zap.String("appointment_id", a.ID), zap.String("recipient", a.Recipient), zap.Error(err))
			continue
		}
		if err := s.Appts.MarkReminderSent(ctx, a.ID); err != nil {
			logger.Log.Error("reminder flag update failed",
				zap.String("appointment_id", a.ID), zap.Error(err))
			continue
		}
		logger.Log.Info("reminder sent",
			zap.String("appointment_id", a.ID), zap.String("recipient", a.Recipient),
			zap.Time("scheduled_at", a.ScheduledAt))
	}
}

// SweepFollowUps thanks customers whose appointment finished within the
// last day.
func (s *Sweeper) SweepFollowUps(ctx context.Context) {
	metrics.SweepRunsTotal.WithLabelValues("follow_up").Inc()

	now := s.now()
	due, err := s.Appts.DueForFollowUp(ctx, now.Add(-followUpWindow), now)
	if err != nil {
		logger.Log.Error("follow-up sweep query failed", zap.Error(err))
		return
	}

	for _, a := range due {
		body := conversation.FollowUpText(a.Service)
		if _, err := s.Dispatch.Send(ctx, model.KindFollowUp, a.Recipient, body); err != nil {
			logger.Log.Error("follow-up dispatch failed",
				zap.String("appointment_id", a.ID), zap.String("recipient", a.Recipient), zap.Error(err))
			continue
		}
		if err := s.Appts.MarkFollowUpSent(ctx, a.ID); err != nil {
			logger.Log.Error("follow-up flag update failed",
				zap.String("appointment_id", a.ID), zap.Error(err))
			continue
		}
		logger.Log.Info("follow-up sent",
			zap.String("appointment_id", a.ID), zap.String("recipient", a.Recipient))
	}
}
