package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-clinic-queue/config"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/pkg/jwt"

	"github.com/google/uuid"
)

func newJWT() *jwt.JWTService {
	return jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "clinic-auth"})
}

func token(t *testing.T, svc *jwt.JWTService, role string, ttl time.Duration) string {
	t.Helper()
	signed, _, err := svc.GenerateAccessToken(uuid.New(), role, ttl)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return signed
}

func TestAuthenticate(t *testing.T) {
	svc := newJWT()
	other := jwt.NewJWTService(config.JWTConfig{Secret: "another-secret", Issuer: "clinic-auth"})
	auth := NewAuthMiddleware(svc, nil)

	var seen entity.Actor
	protected := auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActorFromContext(r.Context())
		if !ok {
			t.Error("actor missing from context")
		}
		seen = actor
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"valid header", "Bearer " + token(t, svc, entity.RoleDoctor, time.Minute), "", http.StatusNoContent},
		{"query token", "", token(t, svc, entity.RoleReception, time.Minute), http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"expired", "Bearer " + token(t, svc, entity.RoleDoctor, -time.Minute), "", http.StatusUnauthorized},
		{"foreign signature", "Bearer " + token(t, other, entity.RoleDoctor, time.Minute), "", http.StatusUnauthorized},
		{"unknown role", "Bearer " + token(t, svc, "patient", time.Minute), "", http.StatusForbidden},
	}

	for _, tt := range cases {
		seen = entity.Actor{}
		target := "/api/v1/queue"
		if tt.query != "" {
			target += "?access_token=" + tt.query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Fatalf("%s: status=%d, want %d", tt.name, rec.Code, tt.want)
		}
		if tt.want == http.StatusNoContent && (seen.UserID == uuid.Nil || seen.Role == "") {
			t.Fatalf("%s: actor=%+v", tt.name, seen)
		}
	}
}

func TestRequireRole(t *testing.T) {
	svc := newJWT()
	auth := NewAuthMiddleware(svc, nil)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		name    string
		handler http.Handler
		role    string
		want    int
	}{
		{"reception only admits reception", RequireReception(ok), entity.RoleReception, http.StatusOK},
		{"reception only rejects doctor", RequireReception(ok), entity.RoleDoctor, http.StatusForbidden},
		{"staff admits medication", RequireStaff(ok), entity.RoleMedication, http.StatusOK},
		{"listed roles", RequireRole(entity.RoleReception, entity.RoleDoctor)(ok), entity.RoleDoctor, http.StatusOK},
		{"unlisted role", RequireRole(entity.RoleReception, entity.RoleDoctor)(ok), entity.RoleMedication, http.StatusForbidden},
	}

	for _, tt := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/call-next", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, svc, tt.role, time.Minute))
		rec := httptest.NewRecorder()
		auth.Authenticate(tt.handler).ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: status=%d, want %d", tt.name, rec.Code, tt.want)
		}
	}

	// without Authenticate there is no role in context
	rec := httptest.NewRecorder()
	RequireStaff(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
}
