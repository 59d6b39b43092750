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

const defaultTimeout = 5 * time.Second

// ErrDeliveryFailed is an exported constant or variable used by the authentication engine.
var ErrDeliveryFailed = errors.New("gateway delivery failed")

// SMSSender defines a public type used by greenauth APIs.
type SMSSender interface {
	SendSMS(ctx context.Context, countryCode, phone, message string) error
}

// EmailSender defines a public type used by greenauth APIs.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSConfig defines a public type used by greenauth APIs.
//
// SMSConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SMSConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPSMSSender defines a public type used by greenauth APIs.
//
// HTTPSMSSender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HTTPSMSSender struct {
	config SMSConfig
	http   *http.Client
}

// NewHTTPSMSSender describes the newhttpsmssender operation and its observable behavior.
//
// NewHTTPSMSSender may return an error when input validation, dependency calls, or security checks fail.
// NewHTTPSMSSender does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHTTPSMSSender(cfg SMSConfig) (*HTTPSMSSender, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("sms endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPSMSSender{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type smsPayload struct {
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
}

// SendSMS describes the sendsms operation and its observable behavior.
//
// SendSMS may return an error when input validation, dependency calls, or security checks fail.
// SendSMS does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *HTTPSMSSender) SendSMS(ctx context.Context, countryCode, phone, message string) error {
	raw, err := json.Marshal(smsPayload{CountryCode: countryCode, Phone: phone, Message: message})
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
		return fmt.Errorf("%w: sms provider returned %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
