package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

func TestTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != 42 {
		t.Fatalf("verify recovered %d, want 42", userID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issuer.ttl = -time.Minute
	token, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = issuer.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("verify = %v, want expired token", err)
	}
	if !errors.Is(err, httpx.ErrTokenExpired) {
		t.Fatalf("expired token should carry the expired kind, got %v", err)
	}
	if errors.Is(err, ErrInvalidToken) {
		t.Fatal("expired token must be distinguishable from an invalid one")
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := issuer.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered verify = %v, want invalid token", err)
	}

	if _, err := issuer.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("malformed verify = %v, want invalid token", err)
	}

	other, _ := NewTokenIssuer("other-secret", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong-key verify = %v, want invalid token", err)
	}
}
