package middleware

import (
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
)

// testSign reimplements the provider's signing scheme so the middleware is
// checked against an independent encoding of the algorithm.
func testSign(token, uri string, form url.Values) string {
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

func signedRequest(form url.Values, sig string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if sig != "" {
		req.Header.Set("X-Twilio-Signature", sig)
	}
	return req
}

func invoke(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	require.NoError(t, h(c))
	return rec
}

func TestTwilioSignatureAcceptsValid(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"book"}}
	sig := testSign("secret", "http://example.com/whatsapp", form)

	rec := invoke(t, TwilioSignature("secret"), signedRequest(form, sig))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestTwilioSignatureRejectsMissingHeader(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"book"}}

	rec := invoke(t, TwilioSignature("secret"), signedRequest(form, ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTwilioSignatureRejectsTamperedBody(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"book"}}
	sig := testSign("secret", "http://example.com/whatsapp", form)

	tampered := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"cancel_booking"}}
	rec := invoke(t, TwilioSignature("secret"), signedRequest(tampered, sig))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTwilioSignatureRejectsWrongToken(t *testing.T) {
	form := url.Values{"Body": {"hi"}}
	sig := testSign("other-token", "http://example.com/whatsapp", form)

	rec := invoke(t, TwilioSignature("secret"), signedRequest(form, sig))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTwilioSignatureHonorsForwardedProto(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hi"}}
	sig := testSign("secret", "https://example.com/whatsapp", form)

	req := signedRequest(form, sig)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := invoke(t, TwilioSignature("secret"), req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
