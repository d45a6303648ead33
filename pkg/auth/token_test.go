package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/asistros/pkg/config"
	apperrors "github.com/asistros/pkg/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, secret string, clock *testClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(&config.JWTConfig{
		Secret:        secret,
		Issuer:        "asistros-auth",
		Algorithm:     "HS512",
		Expire:        3600,
		RefreshExpire: 7 * 24 * 3600,
	}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func adminSubject() SessionSubject {
	return SessionSubject{
		UserID:            1,
		LoginName:         "admin",
		EmployeeID:        10,
		FullName:          "Ana Benítez",
		Email:             "ana@example.com",
		Roles:             []string{"ADMIN"},
		Permissions:       []string{"Clientes", "Facturas"},
		CanViewAllClients: true,
		EmployeeStatus:    1,
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: testNow}
	codec := newTestCodec(t, "secret", clock)

	token, issued, err := codec.IssueSession(adminSubject())
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Fatalf("token has %d dots, want 2", got)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if diff := cmp.Diff(issued, claims, cmpopts.IgnoreFields(SessionClaims{}, "RegisteredClaims")); diff != "" {
		t.Errorf("claims mismatch (-issued +verified):\n%s", diff)
	}
	if claims.LoginName() != "admin" {
		t.Errorf("LoginName() = %q", claims.LoginName())
	}
	if !claims.ExpiresAt.Time.Equal(testNow.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v", claims.ExpiresAt.Time)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
	if codec.IsExpired(token) {
		t.Error("IsExpired() = true for fresh token")
	}
	if codec.IsRefreshKind(token) {
		t.Error("IsRefreshKind() = true for session token")
	}
}

func TestIssueSessionCopiesSlices(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, "secret", &testClock{now: testNow})
	subject := adminSubject()
	_, claims, err := codec.IssueSession(subject)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	subject.Roles[0] = "MUTATED"
	if claims.Roles[0] != "ADMIN" {
		t.Errorf("claims share the caller's slice: %v", claims.Roles)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: testNow}
	signer := newTestCodec(t, "secret-a", clock)
	verifier := newTestCodec(t, "secret-b", clock)

	token, _, err := signer.IssueSession(adminSubject())
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	if _, err := verifier.Verify(token); !apperrors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
	if _, reason := verifier.Inspect(token); reason != ReasonSignatureInvalid {
		t.Errorf("Inspect() reason = %q, want %q", reason, ReasonSignatureInvalid)
	}
	if !verifier.IsExpired(token) {
		t.Error("IsExpired() should treat unverifiable tokens as expired")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: testNow}
	codec := newTestCodec(t, "secret", clock)

	token, _, err := codec.IssueSession(adminSubject())
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}

	clock.now = testNow.Add(time.Hour + time.Second)

	if _, err := codec.Verify(token); !apperrors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
	if _, reason := codec.Inspect(token); reason != ReasonExpired {
		t.Errorf("Inspect() reason = %q, want %q", reason, ReasonExpired)
	}
	if !codec.IsExpired(token) {
		t.Error("IsExpired() = false after expiry")
	}
}

func TestInspectMalformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t, "secret", &testClock{now: testNow})
	for _, token := range []string{"", "abc", "a.b.c", "eyJhbGciOiJIUzUxMiJ9.e30"} {
		if _, reason := codec.Inspect(token); reason != ReasonMalformed {
			t.Errorf("Inspect(%q) reason = %q, want %q", token, reason, ReasonMalformed)
		}
		if _, err := codec.Verify(token); err == nil {
			t.Errorf("Verify(%q) should fail", token)
		}
	}
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: testNow}
	codec := newTestCodec(t, "secret", clock)

	refresh, err := codec.IssueRefresh(1, "admin")
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}
	if !codec.IsRefreshKind(refresh) {
		t.Error("IsRefreshKind() = false for refresh token")
	}

	claims, err := codec.VerifyRefresh(refresh)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}
	if claims.UserID != 1 || claims.LoginName() != "admin" || claims.Kind != KindRefresh {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := codec.Verify(refresh); err == nil {
		t.Error("Verify() accepted a refresh token as a session token")
	}

	session, _, _ := codec.IssueSession(adminSubject())
	if _, err := codec.VerifyRefresh(session); err == nil {
		t.Error("VerifyRefresh() accepted a session token")
	}

	clock.now = testNow.Add(7*24*time.Hour + time.Second)
	if _, err := codec.VerifyRefresh(refresh); err == nil {
		t.Error("VerifyRefresh() accepted an expired refresh token")
	}
	if !codec.IsRefreshKind(refresh) {
		t.Error("IsRefreshKind() should not depend on expiry")
	}
}

func TestNewTokenCodecValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenCodec(&config.JWTConfig{Algorithm: "HS256"}); err == nil {
		t.Error("empty secret should be rejected")
	}
	if _, err := NewTokenCodec(&config.JWTConfig{Secret: "s", Algorithm: "RS256"}); err == nil {
		t.Error("asymmetric algorithm should be rejected")
	}
}
