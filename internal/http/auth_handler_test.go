package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/persistence"
)

type authServiceStub struct {
	result       application.AuthenticateResult
	err          error
	lastEmail    string
	revokedToken string
}

func (s *authServiceStub) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	s.lastEmail = params.Email
	if s.err != nil {
		return application.AuthenticateResult{}, s.err
	}
	return s.result, nil
}

func (s *authServiceStub) RevokeSession(ctx context.Context, token string) error {
	s.revokedToken = token
	return s.err
}

func newAuthRouter(service authService) http.Handler {
	return NewRouter(RouterConfig{Auth: NewAuthHandler(service, nil)})
}

func TestAuthHandler_CreateSession(t *testing.T) {
	t.Run("issues a session on valid credentials", func(t *testing.T) {
		expires := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
		stub := &authServiceStub{result: application.AuthenticateResult{
			User: application.User{ID: "alice", Email: "alice@example.com", CanApprove: true},
			Session: persistence.Session{
				Token:     "tok-1",
				UserID:    "alice",
				ExpiresAt: expires,
			},
		}}
		router := newAuthRouter(stub)

		body := `{"email":"Alice@Example.com","password":"s3cretpass"}`
		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.lastEmail != "alice@example.com" {
			t.Fatalf("email not normalized: %q", stub.lastEmail)
		}
		var resp loginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Token != "tok-1" || !resp.Principal.CanApprove {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if got := rec.Header().Get("X-Session-Token"); got != "tok-1" {
			t.Fatalf("token header missing: %q", got)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value != "tok-1" {
			t.Fatalf("session cookie not set: %+v", cookies)
		}
	})

	t.Run("rejects bad credentials with 401", func(t *testing.T) {
		stub := &authServiceStub{err: application.ErrInvalidCredentials}
		router := newAuthRouter(stub)

		body := `{"email":"alice@example.com","password":"wrong"}`
		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("unexpected error code: %q", resp.ErrorCode)
		}
	})

	t.Run("rejects malformed bodies with 400", func(t *testing.T) {
		router := newAuthRouter(&authServiceStub{})

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_DeleteCurrentSession(t *testing.T) {
	t.Run("revokes the presented token", func(t *testing.T) {
		stub := &authServiceStub{}
		router := newAuthRouter(stub)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if stub.revokedToken != "tok-1" {
			t.Fatalf("token not revoked: %q", stub.revokedToken)
		}
	})

	t.Run("requires a token", func(t *testing.T) {
		router := newAuthRouter(&authServiceStub{})

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_DeleteSession(t *testing.T) {
	t.Run("lets administrators revoke arbitrary tokens", func(t *testing.T) {
		stub := &authServiceStub{}
		router := newAuthRouter(stub)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/tok-9", nil)
		req = authed(req, application.Principal{UserID: "root", IsAdmin: true})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if stub.revokedToken != "tok-9" {
			t.Fatalf("token not revoked: %q", stub.revokedToken)
		}
	})

	t.Run("rejects non-administrators", func(t *testing.T) {
		router := newAuthRouter(&authServiceStub{})

		req := httptest.NewRequest(http.MethodDelete, "/sessions/tok-9", nil)
		req = authed(req, application.Principal{UserID: "alice"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}
