package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/internal/jwttoken"
	"formgate/pkg/requestcontext"
)

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	}))

	t.Run("x-forwarded-for takes the first hop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		req.Header.Set("User-Agent", "curl/8.0")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "203.0.113.9", gotIP)
		assert.Equal(t, "curl/8.0", gotUA)
	})

	t.Run("falls back to remote addr without port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:52114"
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "198.51.100.7", gotIP)
	})

	t.Run("ipv6 remote addr drops the brackets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "[2001:db8::1]:52114"
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "2001:db8::1", gotIP)
	})
}

func TestBrowserLocale(t *testing.T) {
	var got string
	h := BrowserLocale(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Locale(r.Context())
	}))

	tests := []struct {
		header string
		want   string
	}{
		{"pt-BR,pt;q=0.9,en;q=0.8", "pt-BR"},
		{"pt-PT", "pt-BR"},
		{"es-MX,es;q=0.9", "es"},
		{"de-DE,de;q=0.9", "en"},
		{"", "en"},
		{"en-US,en;q=0.9", "en"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Accept-Language", tt.header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, tt.want, got, "header %q", tt.header)
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.RequestID(r.Context())
	}))

	t.Run("honors an inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "req-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, "req-123", got)
		assert.Equal(t, "req-123", rr.Header().Get("X-Request-Id"))
	})

	t.Run("generates one otherwise", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, got)
		assert.Equal(t, got, rr.Header().Get("X-Request-Id"))
	})
}

func TestRequestTime(t *testing.T) {
	var got time.Time
	h := RequestTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
	}))

	before := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, got.Before(before))
	assert.False(t, got.After(time.Now()))
}

func TestRecovery(t *testing.T) {
	h := Recovery(slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRequireAuth(t *testing.T) {
	tokens := jwttoken.New("test-signing-key", "formgate")
	validator := validatorFunc(func(token string) (*Claims, error) {
		c, err := tokens.Validate(token)
		if err != nil {
			return nil, err
		}
		return &Claims{AccountID: c.AccountID, Role: c.Role}, nil
	})

	var got *Claims
	h := RequireAuth(validator, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetClaims(r.Context())
	}))

	t.Run("valid bearer token passes claims through", func(t *testing.T) {
		token, err := tokens.Generate(42, "admin", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, got)
		assert.Equal(t, int64(42), got.AccountID)
	})

	t.Run("missing header is 401", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

type validatorFunc func(token string) (*Claims, error)

func (f validatorFunc) ValidateToken(token string) (*Claims, error) { return f(token) }
