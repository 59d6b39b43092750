package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	greenauth "github.com/mimigigabyte/greenauth"
	"github.com/mimigigabyte/greenauth/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type captureSMS struct {
	mu   sync.Mutex
	last string
}

func (s *captureSMS) SendSMS(_ context.Context, _, _, message string) error {
	s.mu.Lock()
	s.last = message
	s.mu.Unlock()
	return nil
}

func (s *captureSMS) code(t *testing.T) string {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == "" {
		t.Fatal("no sms delivered")
	}
	return s.last
}

func newTestRouter(t *testing.T) (*gin.Engine, *captureSMS) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	cfg := greenauth.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	// The raw code is the whole message, so tests can read it back.
	cfg.Code.SMSTemplate = "%s"

	sms := &captureSMS{}
	engine, err := greenauth.New().
		WithConfig(cfg).
		WithDB(db).
		WithSMSGateway(sms).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return NewServer(engine, nil).Router(), sms
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body.Data
}

func registerViaHTTP(t *testing.T, router *gin.Engine, sms *captureSMS, phone string) map[string]any {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/auth/code", map[string]string{
		"countryCode": "86", "phone": phone, "purpose": "register",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("send code: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"countryCode": "86", "phone": phone,
		"password": "secret-pass", "name": "Test User", "code": sms.code(t),
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeData(t, rec)
}

func TestRegisterLoginAndMe(t *testing.T) {
	router, sms := newTestRouter(t)

	data := registerViaHTTP(t, router, sms, "13800000001")
	if tok, _ := data["accessToken"].(string); tok == "" {
		t.Fatalf("expected access token, got %v", data)
	}
	if tok, _ := data["refreshToken"].(string); tok == "" {
		t.Fatalf("expected refresh token, got %v", data)
	}

	rec := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"countryCode": "86", "phone": "13800000001", "password": "secret-pass",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	login := decodeData(t, rec)

	access, _ := login["accessToken"].(string)
	if access == "" {
		t.Fatal("expected access token")
	}

	rec = doJSON(t, router, http.MethodGet, "/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	me := decodeData(t, rec)
	user, _ := login["user"].(map[string]any)
	if user == nil || me["id"] != user["id"] {
		t.Fatalf("expected /auth/me to echo the login subject, got %v vs %v", me, login)
	}
}

func TestStatusMapping(t *testing.T) {
	router, sms := newTestRouter(t)
	registerViaHTTP(t, router, sms, "13800000001")

	cases := []struct {
		name string
		run  func() *httptest.ResponseRecorder
		want int
	}{
		{
			name: "malformed body",
			run: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
					"phone": "13800000001",
				}, nil)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "wrong password",
			run: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
					"countryCode": "86", "phone": "13800000001", "password": "wrong-pass",
				}, nil)
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "duplicate registration",
			run: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
					"countryCode": "86", "phone": "13800000001",
					"password": "secret-pass", "code": "123456",
				}, nil)
			},
			want: http.StatusConflict,
		},
		{
			name: "invalid phone shape",
			run: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/auth/code", map[string]string{
					"countryCode": "86", "phone": "13-800", "purpose": "login",
				}, nil)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown purpose",
			run: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/auth/code", map[string]string{
					"countryCode": "86", "phone": "13800000001", "purpose": "impersonate",
				}, nil)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "me without token",
			run: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodGet, "/auth/me", nil, nil)
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "refresh with garbage",
			run: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/auth/refresh", map[string]string{
					"refreshToken": "not-a-token",
				}, nil)
			},
			want: http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := tc.run()
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSendCodeRateLimitedStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	body := map[string]string{"countryCode": "86", "phone": "13800000002", "purpose": "login"}
	if rec := doJSON(t, router, http.MethodPost, "/auth/code", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/auth/code", body, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
}
