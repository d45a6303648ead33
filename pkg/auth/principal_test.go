package auth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrincipalHeadersRoundTrip(t *testing.T) {
	t.Parallel()

	want := Principal{
		UserID:            7,
		EmployeeID:        3,
		LoginName:         "mlopez",
		FullName:          "María López",
		Email:             "",
		Roles:             []string{"CONTADOR", "AUXILIAR"},
		Permissions:       []string{"Clientes", "Reportes"},
		CanViewAllClients: false,
	}

	headers := map[string]string{}
	for _, h := range want.Headers() {
		headers[h.Name] = h.Value
	}

	if headers[HeaderUserEmail] != "" {
		t.Errorf("email header = %q, want empty", headers[HeaderUserEmail])
	}
	if headers[HeaderCanViewAllClients] != "false" {
		t.Errorf("can-view-all header = %q", headers[HeaderCanViewAllClients])
	}
	if headers[HeaderUserRoles] != "CONTADOR,AUXILIAR" {
		t.Errorf("roles header = %q", headers[HeaderUserRoles])
	}

	got, err := PrincipalFromHeaders(func(name string) string { return headers[name] })
	if err != nil {
		t.Fatalf("PrincipalFromHeaders() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("principal mismatch (-want +got):\n%s", diff)
	}
}

func TestPrincipalFromHeadersRequiresUserID(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"", "abc"} {
		_, err := PrincipalFromHeaders(func(name string) string {
			if name == HeaderUserID {
				return id
			}
			return ""
		})
		if err == nil {
			t.Errorf("PrincipalFromHeaders() with user id %q should fail", id)
		}
	}
}

func TestPrincipalDataScope(t *testing.T) {
	t.Parallel()

	p := Principal{EmployeeID: 4, CanViewAllClients: true}
	if got := p.DataScope().Type; got != DataScopeAll {
		t.Errorf("DataScope().Type = %v, want all", got)
	}
	p.CanViewAllClients = false
	scope := p.DataScope()
	if scope.Type != DataScopeSelf || scope.EmployeeID != 4 {
		t.Errorf("DataScope() = %+v", scope)
	}
}
