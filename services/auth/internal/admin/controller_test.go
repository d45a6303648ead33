package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asistros/pkg/auth"
	apperrors "github.com/asistros/pkg/errors"
	"github.com/asistros/pkg/middleware"
	"github.com/asistros/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
)

type unlockCall struct {
	actor, target int64
	ip            string
}

type activeCall struct {
	actor, target int64
	active        bool
}

type fakeAccounts struct {
	calls  []unlockCall
	active []activeCall
	err    error
}

func (f *fakeAccounts) UnlockAccount(_ context.Context, actorID, targetID int64, ip string) error {
	f.calls = append(f.calls, unlockCall{actorID, targetID, ip})
	return f.err
}

func (f *fakeAccounts) SetAccountActive(_ context.Context, actorID, targetID int64, active bool, _ string) error {
	f.active = append(f.active, activeCall{actorID, targetID, active})
	return f.err
}

func newApp(t *testing.T, accounts AccountManager) *fiber.App {
	t.Helper()
	authorizer, err := auth.NewMemoryAuthorizer()
	if err != nil {
		t.Fatalf("NewMemoryAuthorizer() error = %v", err)
	}
	if err := authorizer.Grant("ADMIN", "/admin/*", "*"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}

	app := fiber.New()
	router.Register(app, map[string]fiber.Handler{
		"identity": middleware.TrustedIdentity(),
		"admin":    middleware.RequireRole(authorizer),
	}, NewController(accounts))
	return app
}

func unlockRequest(path, userID, roles string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if userID != "" {
		req.Header.Set(auth.HeaderUserID, userID)
		req.Header.Set(auth.HeaderUserRoles, roles)
	}
	req.Header.Set(fiber.HeaderXForwardedFor, "10.1.1.1")
	return req
}

func TestUnlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		userID    string
		roles     string
		err       error
		status    int
		wantCalls int
	}{
		{name: "admin", path: "/admin/users/2/unlock", userID: "1", roles: "ADMIN", status: http.StatusOK, wantCalls: 1},
		{name: "accountant forbidden", path: "/admin/users/2/unlock", userID: "2", roles: "CONTADOR", status: http.StatusForbidden},
		{name: "no identity", path: "/admin/users/2/unlock", status: http.StatusUnauthorized},
		{name: "bad id", path: "/admin/users/abc/unlock", userID: "1", roles: "ADMIN", status: http.StatusBadRequest},
		{name: "missing target", path: "/admin/users/99/unlock", userID: "1", roles: "ADMIN", err: apperrors.NotFound("用户"), status: http.StatusNotFound, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			unlocker := &fakeAccounts{err: tt.err}
			resp, err := newApp(t, unlocker).Test(unlockRequest(tt.path, tt.userID, tt.roles))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if len(unlocker.calls) != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", len(unlocker.calls), tt.wantCalls)
			}
			if tt.wantCalls == 1 && unlocker.calls[0] != (unlockCall{1, 2, "10.1.1.1"}) && tt.status == http.StatusOK {
				t.Errorf("call = %+v", unlocker.calls[0])
			}
		})
	}
}

func TestSetActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		roles  string
		err    error
		status int
		want   []activeCall
	}{
		{name: "deactivate", path: "/admin/users/2/deactivate", roles: "ADMIN", status: http.StatusOK, want: []activeCall{{1, 2, false}}},
		{name: "activate", path: "/admin/users/2/activate", roles: "ADMIN", status: http.StatusOK, want: []activeCall{{1, 2, true}}},
		{name: "accountant forbidden", path: "/admin/users/2/deactivate", roles: "CONTADOR", status: http.StatusForbidden},
		{name: "self", path: "/admin/users/1/deactivate", roles: "ADMIN", err: apperrors.Validation("不能停用自己的账号"), status: http.StatusBadRequest, want: []activeCall{{1, 1, false}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			accounts := &fakeAccounts{err: tt.err}
			resp, err := newApp(t, accounts).Test(unlockRequest(tt.path, "1", tt.roles))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if diff := cmp.Diff(tt.want, accounts.active, cmp.AllowUnexported(activeCall{})); diff != "" {
				t.Errorf("SetAccountActive calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
