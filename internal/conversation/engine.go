package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/appointmint/apptbot/internal/logger"
	"github.com/appointmint/apptbot/internal/model"
	"github.com/appointmint/apptbot/internal/repository"
	"github.com/appointmint/apptbot/internal/util"
)

// ChoiceSender is the slice of the dispatcher the engine needs. Button menus
// go out through it rather than through the synchronous reply channel, which
// cannot carry rich buttons.
type ChoiceSender interface {
	SendChoice(ctx context.Context, to, body string, choices []model.Choice) (string, error)
}

// Reply is what the webhook renders back to the provider. An empty Body
// means the turn was answered out of band and the webhook should return an
// empty document.
type Reply struct {
	Body string
}

// Engine turns one inbound message into at most one store mutation and one
// reply. It keeps no per-message state itself; dialog position lives in the
// conversations repository keyed by recipient.
type Engine struct {
	appts repository.AppointmentsRepository
	convs repository.ConversationsRepository
	disp  ChoiceSender
	loc   *time.Location
	now   func() time.Time
}

func New(appts repository.AppointmentsRepository, convs repository.ConversationsRepository, disp ChoiceSender, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{appts: appts, convs: convs, disp: disp, loc: loc, now: time.Now}
}

// Handle processes one inbound message. It never fails upward: anything
// unexpected is logged with the recipient and raw input, and the caller gets
// the generic apology instead.
func (e *Engine) Handle(ctx context.Context, from, body string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("conversation panicked",
				zap.String("from", from), zap.String("body", body), zap.Any("panic", r))
			reply = Reply{Body: apologyText}
		}
	}()

	reply, err := e.handle(ctx, from, body)
	if err != nil {
		logger.Log.Error("conversation failed",
			zap.String("from", from), zap.String("body", body), zap.Error(err))
		return Reply{Body: apologyText}
	}
	return reply
}

// handle applies the classification rules in order; the first match wins.
// Matching is substring containment over the lower-cased text, so
// "book_later" lands in the booking-intent branch, and cancellation has to
// be checked before booking intent ("book" is inside "cancel_booking" too).
func (e *Engine) handle(ctx context.Context, from, body string) (Reply, error) {
	msg := strings.ToLower(strings.TrimSpace(body))

	switch {
	case strings.Contains(msg, "hi") || strings.Contains(msg, "hello"):
		return e.greet(ctx, from), nil

	case strings.Contains(msg, "cancel_booking"):
		return e.cancel(ctx, from)

	case strings.Contains(msg, "book_now") || strings.Contains(msg, "book"):
		return e.promptService(ctx, from)

	case strings.Contains(msg, "book_later"):
		return Reply{Body: bookLaterText}, nil

	case strings.Contains(msg, "haircut") || strings.Contains(msg, "consultation"):
		return e.promptDate(ctx, from, msg)

	default:
		st, err := e.convs.Get(ctx, from)
		if err != nil {
			return Reply{}, err
		}
		if st.Stage == model.StageAwaitingDateTime {
			return e.book(ctx, from, st, msg)
		}
		return Reply{Body: fallbackText}, nil
	}
}

// greet pushes the button menu through the dispatcher. A dispatch failure is
// logged and swallowed; the webhook still answers with an empty document.
func (e *Engine) greet(ctx context.Context, from string) Reply {
	if _, err := e.disp.SendChoice(ctx, from, greetingText, greetingChoices()); err != nil {
		logger.Log.Error("greeting menu dispatch failed", zap.String("to", from), zap.Error(err))
	}
	return Reply{}
}

func (e *Engine) promptService(ctx context.Context, from string) (Reply, error) {
	if err := e.convs.Put(ctx, from, model.State{Stage: model.StageAwaitingService}); err != nil {
		return Reply{}, err
	}
	return Reply{Body: servicePromptText}, nil
}

func (e *Engine) promptDate(ctx context.Context, from, msg string) (Reply, error) {
	service := titleCase(msg)
	if err := e.convs.Put(ctx, from, model.State{Stage: model.StageAwaitingDateTime, Service: service}); err != nil {
		return Reply{}, err
	}
	return Reply{Body: datePromptText(service)}, nil
}

// cancel removes the recipient's nearest future appointment, never more
// than one.
func (e *Engine) cancel(ctx context.Context, from string) (Reply, error) {
	appt, err := e.appts.NextUpcoming(ctx, from, e.now())
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		return Reply{Body: cancelNoneText}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("find upcoming appointment: %w", err)
	}

	if err := e.appts.Delete(ctx, appt.ID); err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return Reply{Body: cancelNoneText}, nil
		}
		return Reply{}, fmt.Errorf("delete appointment: %w", err)
	}

	logger.Log.Info("appointment cancelled",
		zap.String("recipient", from), zap.String("service", appt.Service))

	return Reply{Body: cancelledText(appt.Service, appt.ScheduledAt)}, nil
}

// book parses the date entry for the pending service. Parse failures and
// past dates keep the stage so the customer can just try again.
func (e *Engine) book(ctx context.Context, from string, st model.State, msg string) (Reply, error) {
	at, err := time.ParseInLocation(DateTimeLayout, msg, e.loc)
	if err != nil || at.Before(e.now()) {
		return Reply{Body: invalidDateText}, nil
	}

	appt := model.Appointment{
		ID:           util.New(),
		CustomerName: defaultCustomerName,
		Recipient:    from,
		Service:      st.Service,
		ScheduledAt:  at,
	}
	if err := e.appts.Create(ctx, appt); err != nil {
		return Reply{}, fmt.Errorf("create appointment: %w", err)
	}

	if err := e.convs.Clear(ctx, from); err != nil {
		logger.Log.Warn("conversation state clear failed", zap.String("from", from), zap.Error(err))
	}

	logger.Log.Info("appointment booked",
		zap.String("recipient", from), zap.String("service", appt.Service), zap.Time("scheduled_at", at))

	return Reply{Body: bookedText(st.Service, at)}, nil
}

// titleCase mirrors the service labels customers see in prompts:
// "haircut" -> "Haircut", "deep tissue massage" -> "Deep Tissue Massage".
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
