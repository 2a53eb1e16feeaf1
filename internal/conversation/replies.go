package conversation

import (
	"fmt"
	"time"

	"github.com/appointmint/apptbot/internal/model"
)

// DateTimeLayout is the slot format customers type when booking.
const DateTimeLayout = "2006-01-02 15:04"

// defaultCustomerName is stored until a name-capture flow exists.
const defaultCustomerName = "Customer"

// Scripted reply texts.
const (
	greetingText      = "Welcome to our appointment booking service! How can we help you today?"
	servicePromptText = "What service would you like to book? (e.g., Haircut, Consultation, etc.)"
	bookLaterText     = "No problem! When you're ready to book, just type 'book' and we'll assist you."
	cancelNoneText    = "You don't have any upcoming appointments to cancel."
	invalidDateText   = "Invalid date format or date is in the past. Please use YYYY-MM-DD HH:MM for a future date and time."
	fallbackText      = "I didn't understand that. Type 'hi' for options or 'book' to book an appointment."
	apologyText       = "An error occurred while processing your request. Please try again later."
)

func greetingChoices() []model.Choice {
	return []model.Choice{
		{ID: "book_now", Label: "Book Now"},
		{ID: "book_later", Label: "Book Later"},
	}
}

func datePromptText(service string) string {
	return fmt.Sprintf("When would you like to schedule your %s? Please provide the date and time in this format: YYYY-MM-DD HH:MM.", service)
}

func bookedText(service string, at time.Time) string {
	return fmt.Sprintf("Your %s is scheduled for %s. You will receive a reminder 24 hours before the appointment.", service, at.Format(DateTimeLayout))
}

func cancelledText(service string, at time.Time) string {
	return fmt.Sprintf("Your appointment for %s on %s has been cancelled.", service, at.Format(DateTimeLayout))
}

// ReminderText is shared with the reminder sweep.
func ReminderText(service string, at time.Time) string {
	return fmt.Sprintf("Reminder: Your %s appointment is scheduled for %s.", service, at.Format(DateTimeLayout))
}

// FollowUpText is shared with the follow-up sweep.
func FollowUpText(service string) string {
	return fmt.Sprintf("Hope you enjoyed your %s! Let us know if you need anything else.", service)
}
