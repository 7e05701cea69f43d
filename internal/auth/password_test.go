package auth

import (
	"errors"
	"testing"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Abc123", true},
		{"Str0ngEnough", true},
		{"password", false},
		{"PASSWORD1", false},
		{"nodigits", false},
		{"Ab1", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidatePasswordStrength(tc.password)
		if tc.ok && err != nil {
			t.Errorf("ValidatePasswordStrength(%q) = %v, want nil", tc.password, err)
		}
		if !tc.ok && !errors.Is(err, httpx.ErrValidation) {
			t.Errorf("ValidatePasswordStrength(%q) = %v, want validation error", tc.password, err)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	digest, err := HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "Sup3rSecret" {
		t.Fatal("digest equals plaintext")
	}
	if !CheckPassword("Sup3rSecret", digest) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrongpass", digest) {
		t.Fatal("wrong password accepted")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Admin@Example.COM "); got != "admin@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}
