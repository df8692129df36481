package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Mailer delivers verification links.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

// LogMailer writes the link to the log instead of sending mail. It is the
// mailer when no Resend key is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(_ context.Context, to, link string) error {
	m.logger.Info("verification email", slog.String("to", to), slog.String("link", link))
	return nil
}

const resendBaseURL = "https://api.resend.com"

var verificationHTML = template.Must(template.New("verify").Parse(
	`<p>Welcome to the family catalog!</p>
<p>Please verify your email by clicking the link below:</p>
<p><a href="{{.}}">Verify email</a></p>
`))

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("auth: resend API key is empty")
	}
	return &ResendMailer{
		apiKey:  apiKey,
		from:    from,
		baseURL: resendBaseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) SendVerification(ctx context.Context, to, link string) error {
	var html bytes.Buffer
	if err := verificationHTML.Execute(&html, link); err != nil {
		return fmt.Errorf("auth: rendering verification email: %w", err)
	}

	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Verify your email",
		HTML:    html.String(),
	})
	if err != nil {
		return fmt.Errorf("auth: encoding resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("auth: building resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("auth: resend returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
