package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendSMSPostsPayload(t *testing.T) {
	var got smsPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sms-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := NewHTTPSMSSender(SMSConfig{Endpoint: srv.URL, APIKey: "sms-key"})
	if err != nil {
		t.Fatalf("NewHTTPSMSSender failed: %v", err)
	}

	if err := sender.SendSMS(context.Background(), "86", "13800000001", "code 246810"); err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}
	if got.CountryCode != "86" || got.Phone != "13800000001" || got.Message != "code 246810" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSendSMSProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sender, err := NewHTTPSMSSender(SMSConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTPSMSSender failed: %v", err)
	}

	if err := sender.SendSMS(context.Background(), "86", "13800000001", "hi"); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestSendEmailPostsPayload(t *testing.T) {
	var got emailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewHTTPEmailSender(EmailConfig{Endpoint: srv.URL, From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("NewHTTPEmailSender failed: %v", err)
	}

	if err := sender.SendEmail(context.Background(), "alice@example.com", "Your code", "246810"); err != nil {
		t.Fatalf("SendEmail failed: %v", err)
	}
	if got.From != "noreply@example.com" || got.To != "alice@example.com" || got.Body != "246810" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSenderConfigValidation(t *testing.T) {
	if _, err := NewHTTPSMSSender(SMSConfig{}); err == nil {
		t.Fatal("expected error for missing sms endpoint")
	}
	if _, err := NewHTTPEmailSender(EmailConfig{Endpoint: "http://mail"}); err == nil {
		t.Fatal("expected error for missing from address")
	}
}
