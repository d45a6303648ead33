package auth

import (
	"strings"
	"testing"

	"github.com/asistros/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

const testLegacyKey = "password123"

func newTestVerifier(t *testing.T) (*PasswordVerifier, *LegacyScheme) {
	t.Helper()
	legacy, err := NewLegacyScheme(testLegacyKey)
	if err != nil {
		t.Fatalf("NewLegacyScheme() error = %v", err)
	}
	return NewPasswordVerifierWithSchemes(NewBcryptScheme(bcrypt.MinCost), legacy), legacy
}

func TestLegacySchemeRoundTrip(t *testing.T) {
	t.Parallel()

	_, legacy := newTestVerifier(t)
	for _, plain := range []string{"admin123", "", "exactly16bytes!!", "contraseña-ñ"} {
		cipherText, err := legacy.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", plain, err)
		}
		got, err := legacy.Decrypt(cipherText)
		if err != nil {
			t.Fatalf("Decrypt(%q) error = %v", cipherText, err)
		}
		if got != plain {
			t.Errorf("Decrypt(Encrypt(%q)) = %q", plain, got)
		}
	}
}

func TestPasswordVerifierVerify(t *testing.T) {
	t.Parallel()

	v, legacy := newTestVerifier(t)
	legacyHash, err := legacy.Encrypt("admin123")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	modernHash, err := v.HashModern("admin123")
	if err != nil {
		t.Fatalf("HashModern() error = %v", err)
	}

	tests := []struct {
		name  string
		plain string
		hash  string
		want  bool
	}{
		{name: "modern match", plain: "admin123", hash: modernHash, want: true},
		{name: "modern mismatch", plain: "admin124", hash: modernHash, want: false},
		{name: "legacy match", plain: "admin123", hash: legacyHash, want: true},
		{name: "legacy mismatch", plain: "Admin123", hash: legacyHash, want: false},
		{name: "legacy not base64", plain: "admin123", hash: "%%%not-base64%%%", want: false},
		{name: "legacy wrong block size", plain: "admin123", hash: "YWJj", want: false},
		{name: "legacy bad padding", plain: "admin123", hash: "AAAAAAAAAAAAAAAAAAAAAA==", want: false},
		{name: "empty hash", plain: "", hash: "", want: false},
		{name: "truncated bcrypt", plain: "admin123", hash: "$2a$12$short", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := v.Verify(tt.plain, tt.hash); got != tt.want {
				t.Errorf("Verify(%q, %q) = %v, want %v", tt.plain, tt.hash, got, tt.want)
			}
		})
	}
}

func TestIsModernScheme(t *testing.T) {
	t.Parallel()

	v, legacy := newTestVerifier(t)
	legacyHash, _ := legacy.Encrypt("admin123")

	for hash, want := range map[string]bool{
		"$2a$12$abcdefghijklmnopqrstuv": true,
		"$2b$10$abcdefghijklmnopqrstuv": true,
		"$2y$10$abcdefghijklmnopqrstuv": true,
		legacyHash:                      false,
		"":                              false,
	} {
		if got := v.IsModernScheme(hash); got != want {
			t.Errorf("IsModernScheme(%q) = %v, want %v", hash, got, want)
		}
	}
}

func TestHashModernUsesConfiguredCost(t *testing.T) {
	t.Parallel()

	v, err := NewPasswordVerifier(&config.PasswordConfig{BcryptCost: DefaultBcryptCost})
	if err != nil {
		t.Fatalf("NewPasswordVerifier() error = %v", err)
	}
	hash, err := v.HashModern("S3guro!")
	if err != nil {
		t.Fatalf("HashModern() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash prefix = %q", hash[:4])
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != DefaultBcryptCost {
		t.Errorf("cost = %d, want %d", cost, DefaultBcryptCost)
	}
}

func TestVerifierWithoutLegacyKeyRejectsLegacyHashes(t *testing.T) {
	t.Parallel()

	_, legacy := newTestVerifier(t)
	legacyHash, _ := legacy.Encrypt("admin123")

	v, err := NewPasswordVerifier(&config.PasswordConfig{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewPasswordVerifier() error = %v", err)
	}
	if v.Verify("admin123", legacyHash) {
		t.Error("Verify() should fail when the legacy scheme is not configured")
	}
}
