package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asistros/pkg/auth"
	"github.com/asistros/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
)

type fakeVerifier struct {
	claims  *auth.SessionClaims
	err     error
	expired bool
	calls   int
}

func (f *fakeVerifier) Verify(string) (*auth.SessionClaims, error) {
	f.calls++
	return f.claims, f.err
}

func (f *fakeVerifier) IsExpired(string) bool {
	return f.expired
}

func validClaims() *auth.SessionClaims {
	return &auth.SessionClaims{
		UserID:            1,
		EmployeeID:        10,
		FullName:          "Ana Benítez",
		Email:             "ana@example.com",
		Roles:             []string{"ADMIN"},
		Permissions:       []string{"Clientes", "Facturas"},
		CanViewAllClients: true,
		Kind:              auth.KindSession,
		RegisteredClaims:  jwt.RegisteredClaims{Subject: "admin"},
	}
}

func decodeBody(t *testing.T, resp *http.Response) response.Response {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out response.Response
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", body, err)
	}
	return out
}

func TestEdgeIdentityRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantVerify bool
	}{
		{name: "no header", header: "", verifier: &fakeVerifier{claims: validClaims()}},
		{name: "basic scheme", header: "Basic YWRtaW46YWRtaW4=", verifier: &fakeVerifier{claims: validClaims()}},
		{name: "lowercase bearer", header: "bearer abc", verifier: &fakeVerifier{claims: validClaims()}},
		{name: "invalid token", header: "Bearer abc", verifier: &fakeVerifier{err: errors.New("bad")}, wantVerify: true},
		{name: "expired token", header: "Bearer abc", verifier: &fakeVerifier{claims: validClaims(), expired: true}, wantVerify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reached := false
			app := fiber.New()
			app.Use(EdgeIdentity(tt.verifier))
			app.Get("/api/v1/clients", func(c *fiber.Ctx) error {
				reached = true
				return c.SendStatus(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}

			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
			if reached {
				t.Error("request was forwarded")
			}
			if got := tt.verifier.calls > 0; got != tt.wantVerify {
				t.Errorf("verifier called = %v, want %v", got, tt.wantVerify)
			}
			body := decodeBody(t, resp)
			if body.Code != response.CodeUnauthorized || body.Message != response.MsgUnauthorized {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestEdgeIdentityForwardsIdentityHeaders(t *testing.T) {
	t.Parallel()

	var got map[string][]string
	app := fiber.New()
	app.Use(EdgeIdentity(&fakeVerifier{claims: validClaims()}))
	app.Get("/api/v1/clients", func(c *fiber.Ctx) error {
		got = c.GetReqHeaders()
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer token")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	want := map[string]string{
		auth.HeaderUserID:            "1",
		auth.HeaderEmployeeID:        "10",
		auth.HeaderUserName:          "admin",
		auth.HeaderUserFullName:      "Ana Benítez",
		auth.HeaderUserEmail:         "ana@example.com",
		auth.HeaderUserRoles:         "ADMIN",
		auth.HeaderUserPermissions:   "Clientes,Facturas",
		auth.HeaderCanViewAllClients: "true",
	}
	for name, value := range want {
		if diff := cmp.Diff([]string{value}, got[name]); diff != "" {
			t.Errorf("header %s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestEdgeIdentityKeepsClientHeaders(t *testing.T) {
	t.Parallel()

	var got []string
	app := fiber.New()
	app.Use(EdgeIdentity(&fakeVerifier{claims: validClaims()}))
	app.Get("/x", func(c *fiber.Ctx) error {
		got = c.GetReqHeaders()[auth.HeaderUserID]
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set(auth.HeaderUserID, "999")
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if diff := cmp.Diff([]string{"999", "1"}, got); diff != "" {
		t.Errorf("X-User-Id values mismatch (-want +got):\n%s", diff)
	}
}

func TestTrustedIdentity(t *testing.T) {
	t.Parallel()

	var principal auth.Principal
	app := fiber.New()
	app.Use(TrustedIdentity())
	app.Get("/context", func(c *fiber.Ctx) error {
		p, ok := GetPrincipal(c)
		if !ok {
			t.Error("GetPrincipal() not found")
		}
		principal = p
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/context", nil)
	for _, h := range auth.PrincipalFromClaims(validClaims()).Headers() {
		req.Header.Set(h.Name, h.Value)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if diff := cmp.Diff(auth.PrincipalFromClaims(validClaims()), principal); diff != "" {
		t.Errorf("principal mismatch (-want +got):\n%s", diff)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/context", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without headers = %d, want 401", resp.StatusCode)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	authorizer, err := auth.NewMemoryAuthorizer()
	if err != nil {
		t.Fatalf("NewMemoryAuthorizer() error = %v", err)
	}
	if err := authorizer.Grant("ADMIN", "/admin/*", "*"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}

	app := fiber.New()
	app.Use(TrustedIdentity())
	app.Post("/admin/users/:id/unlock", RequireRole(authorizer), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	tests := []struct {
		name  string
		roles string
		want  int
	}{
		{name: "admin", roles: "ADMIN", want: http.StatusOK},
		{name: "accountant", roles: "CONTADOR", want: http.StatusForbidden},
		{name: "no roles", roles: "", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/admin/users/5/unlock", nil)
		req.Header.Set(auth.HeaderUserID, "1")
		req.Header.Set(auth.HeaderUserRoles, tt.roles)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test() error = %v", tt.name, err)
		}
		if resp.StatusCode != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, resp.StatusCode, tt.want)
		}
	}
}
