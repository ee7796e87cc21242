package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	greenauth "github.com/verdantio/greenauth"
	"github.com/verdantio/greenauth/internal/directory"
	"github.com/verdantio/greenauth/middleware"
)

type plainVerifier struct{}

func (plainVerifier) Verify(plain, hash string) bool { return plain == hash }

// newGuardEnv builds an engine with one user holding sensor_view and returns
// it together with a valid access token for that user.
func newGuardEnv(t *testing.T) (*greenauth.Engine, string) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	dir := directory.NewMemory()
	userID := dir.AddUser("grower@example.com", "hunter2", true)
	roleID, err := dir.CreateRole(context.Background(), "operator", true, []string{"sensor_view"})
	if err != nil {
		t.Fatalf("seed role: %v", err)
	}
	if err := dir.AssignRole(context.Background(), userID, roleID); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	cfg := greenauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("guard-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("guard-refresh-secret-0123456789")

	engine, err := greenauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(dir).
		WithPasswordVerifier(plainVerifier{}).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	pair, err := engine.Login(context.Background(), "grower@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return engine, pair.AccessToken
}

func TestAuthenticateRejectsMissingAndMalformedHeaders(t *testing.T) {
	engine, _ := newGuardEnv(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	})
	guard := middleware.Authenticate(engine)(next)

	cases := map[string]string{
		"no header":      "",
		"not bearer":     "Basic Zm9vOmJhcg==",
		"empty bearer":   "Bearer ",
		"garbage token":  "Bearer not-a-jwt",
		"missing prefix": "abc.def.ghi",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			guard.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthenticateStoresIdentityOnContext(t *testing.T) {
	engine, token := newGuardEnv(t)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		if identity.Email != "grower@example.com" {
			t.Fatalf("identity email = %q", identity.Email)
		}
		if !identity.Can("sensor_view") {
			t.Fatal("resolved permission missing")
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Authenticate(engine)(next).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("handler not reached, status = %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	engine, token := newGuardEnv(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	run := func(key string) *httptest.ResponseRecorder {
		handler := middleware.Authenticate(engine)(middleware.RequirePermission(engine, key)(next))
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := run("sensor_view"); rec.Code != http.StatusNoContent {
		t.Fatalf("granted key: status = %d, want 204", rec.Code)
	}
	if rec := run("role_delete"); rec.Code != http.StatusForbidden {
		t.Fatalf("missing key: status = %d, want 403", rec.Code)
	}
}

func TestRequirePermissionWithoutAuthenticateIsUnauthorized(t *testing.T) {
	engine, _ := newGuardEnv(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	handler := middleware.RequirePermission(engine, "sensor_view")(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
