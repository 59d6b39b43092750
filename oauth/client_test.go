package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		AuthorizeURL: srv.URL + "/authorize",
		TokenURL:     srv.URL + "/token",
		ProfileURL:   srv.URL + "/profile",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, srv
}

func TestAuthorizeURLCarriesState(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())

	raw := c.AuthorizeURL("state-123", "https://app.example.com/cb")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.HasPrefix(raw, srv.URL+"/authorize?") {
		t.Fatalf("unexpected authorize url %q", raw)
	}
	q := parsed.Query()
	if q.Get("state") != "state-123" || q.Get("client_id") != "app-id" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("redirect_uri") != "https://app.example.com/cb" {
		t.Fatalf("unexpected redirect_uri %q", q.Get("redirect_uri"))
	}
}

func TestExchangeSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("code") != "auth-code" || r.Form.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected form %v", r.Form)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-token"})
	})
	c, _ := newTestClient(t, mux)

	token, err := c.Exchange(context.Background(), "auth-code", "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if token != "provider-token" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestExchangeDeniedAndUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		switch r.FormValue("code") {
		case "bad-code":
			w.WriteHeader(http.StatusBadRequest)
		case "soft-deny":
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	if _, err := c.Exchange(ctx, "bad-code", "uri"); !errors.Is(err, ErrProviderDenied) {
		t.Fatalf("expected ErrProviderDenied for 400, got %v", err)
	}
	if _, err := c.Exchange(ctx, "soft-deny", "uri"); !errors.Is(err, ErrProviderDenied) {
		t.Fatalf("expected ErrProviderDenied for error body, got %v", err)
	}
	if _, err := c.Exchange(ctx, "boom", "uri"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable for 502, got %v", err)
	}
}

func TestFetchProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer provider-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":         "wx-openid-1",
			"name":       "Alice",
			"avatar_url": "https://cdn/avatar.png",
		})
	})
	c, _ := newTestClient(t, mux)

	profile, err := c.FetchProfile(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("FetchProfile failed: %v", err)
	}
	if profile.ProviderUserID != "wx-openid-1" || profile.Name != "Alice" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestFetchProfileMissingID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "No ID"})
	})
	c, _ := newTestClient(t, mux)

	if _, err := c.FetchProfile(context.Background(), "tok"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected validation error for empty config")
	}
}
