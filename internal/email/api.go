package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APISender envía a través de una API HTTP transaccional
// (estilo Postmark).
type APISender struct {
	BaseURL string
	Token   string
	From    string

	client *http.Client
	log    *zap.Logger
}

type apiSendRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

func NewAPISender(baseURL, token, from string, timeout time.Duration, log *zap.Logger) *APISender {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APISender{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		From:    from,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (s *APISender) Send(to, subject, htmlBody, textBody string) error {
	body, err := json.Marshal(apiSendRequest{
		From:     s.From,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return &DeliveryError{Recipient: to, Err: err}
	}

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Recipient: to, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Server-Token", s.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("email_api_send_err", zap.String("to", to), zap.Error(err))
		return &DeliveryError{Recipient: to, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// El cuerpo suele traer la razón del rechazo; lo acotamos.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		s.log.Error("email_api_send_rejected", zap.String("to", to), zap.Int("status", resp.StatusCode))
		return &DeliveryError{Recipient: to, Err: err}
	}

	s.log.Debug("email_api_send_ok", zap.String("to", to))
	return nil
}
