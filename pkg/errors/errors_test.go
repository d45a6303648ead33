package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{name: "validation", err: Validation("bad"), want: http.StatusBadRequest},
		{name: "unprocessable", err: Unprocessable("weak"), want: http.StatusUnprocessableEntity},
		{name: "authentication", err: ErrInvalidCredential, want: http.StatusUnauthorized},
		{name: "authorization", err: ErrAccountDisabled, want: http.StatusForbidden},
		{name: "infrastructure", err: Infrastructure("", fmt.Errorf("dial tcp")), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFromHidesInfrastructureCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("pq: password authentication failed for user \"root\"")
	appErr := From(cause)

	if appErr.Kind != KindInfrastructure {
		t.Fatalf("Kind = %q, want %q", appErr.Kind, KindInfrastructure)
	}
	if got := appErr.PublicMessage(); got != ErrInternalServer.Message {
		t.Errorf("PublicMessage() = %q, want %q", got, ErrInternalServer.Message)
	}
	if !Is(appErr, cause) {
		t.Errorf("wrapped cause should stay reachable via errors.Is")
	}
}

func TestIsMatchesWrappedPredefined(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("login: %w", ErrInvalidCredential)
	if !Is(err, ErrInvalidCredential) {
		t.Errorf("Is(wrapped, ErrInvalidCredential) = false")
	}
	if Is(err, ErrTokenInvalid) {
		t.Errorf("Is(wrapped, ErrTokenInvalid) = true")
	}
	if KindOf(err) != KindAuthentication {
		t.Errorf("KindOf() = %q", KindOf(err))
	}
}
