package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appointmint/apptbot/internal/model"
)

// Provider sends one message to one recipient and reports the provider's
// message id. Implementations own the wire format, button encoding included.
type Provider interface {
	Name() string
	Acquire() bool
	SendText(ctx context.Context, to, body string) (string, error)
	SendButtons(ctx context.Context, to, body string, choices []model.Choice) (string, error)
}

// TwilioProvider posts to the Twilio Messages API with form encoding and
// basic auth. Button choices ride inside the message body as the WhatsApp
// interactive document; Twilio passes it through to the WhatsApp channel.
type TwilioProvider struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
	br         *Breaker
}

func NewTwilioProvider(accountSID, authToken, from, baseURL string, timeout time.Duration, br *Breaker) *TwilioProvider {
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if br == nil {
		br = NewBreaker(0, 0)
	}

	return &TwilioProvider{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		br:         br,
	}
}

func (p *TwilioProvider) Name() string  { return "twilio" }
func (p *TwilioProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *TwilioProvider) SendText(ctx context.Context, to, body string) (string, error) {
	sid, err := p.post(ctx, to, body)
	if err != nil {
		p.br.OnFailure()
		return "", err
	}

	p.br.OnSuccess()

	return sid, nil
}

func (p *TwilioProvider) SendButtons(ctx context.Context, to, body string, choices []model.Choice) (string, error) {
	doc, err := interactiveBody(body, choices)
	if err != nil {
		return "", err
	}

	sid, err := p.post(ctx, to, doc)
	if err != nil {
		p.br.OnFailure()
		return "", err
	}

	p.br.OnSuccess()

	return sid, nil
}

func (p *TwilioProvider) post(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, p.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.accountSID, p.authToken)

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}

	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode/100 != 2 {
		return "", fmt.Errorf("provider=twilio status=%d body=%s", res.StatusCode, raw)
	}

	var created struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}

	return created.SID, nil
}

// interactiveBody renders the WhatsApp quick-reply document for a prompt
// plus its buttons.
func interactiveBody(text string, choices []model.Choice) (string, error) {
	type reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	type button struct {
		Type  string `json:"type"`
		Reply reply  `json:"reply"`
	}

	var doc struct {
		Type        string `json:"type"`
		Interactive struct {
			Type string `json:"type"`
			Body struct {
				Text string `json:"text"`
			} `json:"body"`
			Action struct {
				Buttons []button `json:"buttons"`
			} `json:"action"`
		} `json:"interactive"`
	}

	doc.Type = "interactive"
	doc.Interactive.Type = "button"
	doc.Interactive.Body.Text = text
	for _, c := range choices {
		doc.Interactive.Action.Buttons = append(doc.Interactive.Action.Buttons, button{
			Type:  "reply",
			Reply: reply{ID: c.ID, Title: c.Label},
		})
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
