package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// EmailConfig defines a public type used by greenauth APIs.
//
// EmailConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EmailConfig struct {
	Endpoint string
	APIKey   string
	From     string
	Timeout  time.Duration
}

// HTTPEmailSender defines a public type used by greenauth APIs.
//
// HTTPEmailSender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HTTPEmailSender struct {
	config EmailConfig
	http   *http.Client
}

// NewHTTPEmailSender describes the newhttpemailsender operation and its observable behavior.
//
// NewHTTPEmailSender may return an error when input validation, dependency calls, or security checks fail.
// NewHTTPEmailSender does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHTTPEmailSender(cfg EmailConfig) (*HTTPEmailSender, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("email endpoint is required")
	}
	if cfg.From == "" {
		return nil, errors.New("email from address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPEmailSender{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type emailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmail describes the sendemail operation and its observable behavior.
//
// SendEmail may return an error when input validation, dependency calls, or security checks fail.
// SendEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *HTTPEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	raw, err := json.Marshal(emailPayload{From: s.config.From, To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: email provider returned %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
