package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"aula-backend/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	identity := models.Identity{
		ID:          uuid.New(),
		DisplayName: "Ada Lovelace",
		Role:        models.RoleInstructor,
	}

	token, err := auth.GenerateAccessToken(identity)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	parsed, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed != identity {
		t.Errorf("expected %+v, got %+v", identity, parsed)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	other := NewJWTAuth("other-secret")

	token, err := auth.GenerateAccessToken(models.Identity{ID: uuid.New(), Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := other.ParseToken(token); err == nil {
		t.Error("a token signed with another secret must be rejected")
	}
}

func TestParseTokenRejectsBadClaims(t *testing.T) {
	auth := NewJWTAuth("test-secret")

	sign := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		s, err := token.SignedString(auth.Secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	exp := time.Now().Add(15 * time.Minute).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"missing user id", jwt.MapClaims{"role": "STUDENT", "exp": exp}},
		{"malformed user id", jwt.MapClaims{"user_id": "not-a-uuid", "role": "STUDENT", "exp": exp}},
		{"missing role", jwt.MapClaims{"user_id": uuid.New().String(), "exp": exp}},
		{"unknown role", jwt.MapClaims{"user_id": uuid.New().String(), "role": "SUPERUSER", "exp": exp}},
		{"expired", jwt.MapClaims{"user_id": uuid.New().String(), "role": "STUDENT", "exp": time.Now().Add(-time.Hour).Unix()}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := auth.ParseToken(sign(tc.claims)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	identity := models.Identity{ID: uuid.New(), DisplayName: "Grace", Role: models.RoleAdmin}
	token, err := auth.GenerateAccessToken(identity)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var got models.Identity
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetIdentity(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got != identity {
		t.Errorf("expected %+v in context, got %+v", identity, got)
	}
}

func TestMiddlewareRejectsBadHeaders(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a valid token")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rr.Code)
			}
		})
	}
}
