package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// TwilioSignature authenticates webhook calls against the X-Twilio-Signature
// header: base64 HMAC-SHA1 over the public request URL concatenated with the
// sorted form parameters, keyed with the account auth token. Requests that
// fail the check never reach the handler.
func TwilioSignature(authToken string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			sig := req.Header.Get("X-Twilio-Signature")
			if sig == "" {
				return c.NoContent(http.StatusForbidden)
			}

			if err := req.ParseForm(); err != nil {
				return c.NoContent(http.StatusForbidden)
			}

			expected := computeSignature(authToken, requestURL(req), req.PostForm)
			if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
				log.Warnf("rejected webhook call with bad signature from %s", c.RealIP())
				return c.NoContent(http.StatusForbidden)
			}

			return next(c)
		}
	}
}

// requestURL rebuilds the URL the caller signed. Behind a proxy the original
// scheme arrives in X-Forwarded-Proto; the signature covers the public URL,
// not the internal one.
func requestURL(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	u := scheme + "://" + req.Host + req.URL.Path
	if req.URL.RawQuery != "" {
		u += "?" + req.URL.RawQuery
	}
	return u
}

func computeSignature(authToken, uri string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(uri))
	for _, k := range keys {
		for _, v := range form[k] {
			mac.Write([]byte(k))
			mac.Write([]byte(v))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
