package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"finanz/internal/log"
)

// ErrNoAPIKey means the mailer was never configured. Callers treat this as a
// soft failure so the invite flow keeps working without a provider account.
var ErrNoAPIKey = errors.New("email service not configured")

// ProviderError is a non-2xx answer from the email provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email provider returned %d: %s", e.StatusCode, e.Message)
}

// Client sends transactional email through the Resend REST API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	from       string
	logger     *log.Logger
}

func NewClient(apiKey, baseURL, from string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentMailer)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    baseURL,
		from:       from,
		logger:     logger,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Invite describes one invitation email.
type Invite struct {
	To         string
	FamilyName string
	Inviter    string
	Link       string
}

// SendInvite emails a family invitation and returns the provider's email ID.
func (c *Client) SendInvite(ctx context.Context, inv Invite) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	subject := fmt.Sprintf("Convite: Participe da família %s", inv.FamilyName)
	body := inviteHTML(inv)

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{inv.To},
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		return "", fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send email request: %w", err)
	}
	defer resp.Body.Close()

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("decode provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := parsed.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	c.logger.InfoContext(ctx, "Invitation email sent",
		log.FieldEmail, inv.To,
		"email_id", parsed.ID)
	return parsed.ID, nil
}

func inviteHTML(inv Invite) string {
	inviter := inv.Inviter
	if inviter == "" {
		inviter = "Alguém"
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; background: #fff; border-radius: 16px; overflow: hidden;">
  <div style="background: #7c3aed; padding: 32px; text-align: center;">
    <h1 style="color: #fff; margin: 0; font-size: 28px;">FinanZ</h1>
  </div>
  <div style="padding: 40px 32px;">
    <h2 style="color: #1e293b;">Você foi convidado!</h2>
    <p style="color: #475569;">Olá! <strong>%s</strong> convidou você para se juntar à família <strong>%s</strong> no FinanZ.</p>
    <p style="color: #475569;">Agora vocês podem organizar gastos, planejar o futuro e acompanhar quem está economizando mais no ranking da família.</p>
    <p style="text-align: center; margin: 32px 0;">
      <a href="%s" style="background: #7c3aed; color: #fff; padding: 14px 32px; border-radius: 12px; text-decoration: none; font-weight: 600;">Aceitar Convite</a>
    </p>
    <p style="color: #475569; font-size: 14px;">Se você ainda não possui uma conta, basta se cadastrar usando o e-mail: <strong>%s</strong></p>
  </div>
  <div style="padding: 24px 32px; background: #f1f5f9;">
    <p style="color: #94a3b8; font-size: 12px; margin: 0;">Este é um e-mail automático enviado pelo FinanZ.</p>
  </div>
</div>`, inviter, inv.FamilyName, inv.Link, inv.To)
}
