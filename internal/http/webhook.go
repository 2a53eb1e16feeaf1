package http

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/appointmint/apptbot/internal/conversation"
	"github.com/appointmint/apptbot/internal/util"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// Conversation is the slice of the engine the webhook needs.
type Conversation interface {
	Handle(ctx context.Context, from, body string) conversation.Reply
}

// twimlResponse is the synchronous webhook reply document. No Message child
// means the turn was answered out of band (or not at all).
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// whatsappHandler feeds inbound messages to the conversation engine and
// renders its reply as TwiML.
func whatsappHandler(engine Conversation) echo.HandlerFunc {
	return func(c echo.Context) error {
		from := strings.TrimSpace(c.FormValue("From"))
		if from == "" {
			log.Errorf("webhook call without From field")
			return c.String(http.StatusBadRequest, "missing From")
		}
		from = util.NormalizeRecipient(from)
		body := c.FormValue("Body")

		reply := engine.Handle(c.Request().Context(), from, body)

		return c.XML(http.StatusOK, twimlResponse{Message: reply.Body})
	}
}
