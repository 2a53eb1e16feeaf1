package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appointmint/apptbot/internal/config"
	"github.com/appointmint/apptbot/internal/conversation"
)

type fakeEngine struct {
	from  string
	body  string
	reply conversation.Reply
}

func (f *fakeEngine) Handle(_ context.Context, from, body string) conversation.Reply {
	f.from = from
	f.body = body
	return f.reply
}

func webhookCall(form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookRendersReplyAsTwiML(t *testing.T) {
	eng := &fakeEngine{reply: conversation.Reply{Body: "What service would you like?"}}
	c, rec := webhookCall(url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"book"}})

	require.NoError(t, whatsappHandler(eng)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "xml")
	assert.Contains(t, rec.Body.String(), "<Response><Message>What service would you like?</Message></Response>")
	assert.Equal(t, "book", eng.body)
}

func TestWebhookEmptyReplyRendersEmptyDocument(t *testing.T) {
	eng := &fakeEngine{}
	c, rec := webhookCall(url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hi"}})

	require.NoError(t, whatsappHandler(eng)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Response></Response>")
	assert.NotContains(t, rec.Body.String(), "<Message>")
}

func TestWebhookNormalizesSender(t *testing.T) {
	eng := &fakeEngine{}
	c, rec := webhookCall(url.Values{"From": {" whatsapp:+1 555 123-4567 "}, "Body": {"hi"}})

	require.NoError(t, whatsappHandler(eng)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "whatsapp:+15551234567", eng.from)
}

func TestWebhookRejectsMissingSender(t *testing.T) {
	eng := &fakeEngine{}
	c, rec := webhookCall(url.Values{"Body": {"hi"}})

	require.NoError(t, whatsappHandler(eng)(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// sign mirrors the provider's webhook signing scheme.
func sign(token, uri string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(uri))
	for _, k := range keys {
		mac.Write([]byte(k))
		mac.Write([]byte(form.Get(k)))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestServerServesSignedWebhook(t *testing.T) {
	var cfg config.Config
	cfg.Twilio.AuthToken = "secret"
	eng := &fakeEngine{reply: conversation.Reply{Body: "ok"}}
	srv := NewServer(cfg, eng, nil)

	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"book"}}
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("X-Twilio-Signature", sign("secret", "http://example.com/whatsapp", form))
	rec := httptest.NewRecorder()

	srv.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Message>ok</Message>")

	// unsigned calls never reach the engine
	req = httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = httptest.NewRecorder()

	srv.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	// health stays open
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()

	srv.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
