package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword("correct horse", hash) {
		t.Error("expected password to match")
	}
	if CheckPassword("wrong horse", hash) {
		t.Error("expected mismatch for wrong password")
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer("0123456789abcdef", time.Hour)
	tok, err := iss.Issue(42, "ama@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "ama@example.com" || claims.Issuer != "stephly" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestIssuer_Rejects(t *testing.T) {
	iss := NewIssuer("0123456789abcdef", time.Hour)
	tok, _ := iss.Issue(1, "a@b.co")

	other := NewIssuer("fedcba9876543210", time.Hour)
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: expected ErrInvalidToken, got %v", err)
	}

	expired := NewIssuer("0123456789abcdef", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue(1, "a@b.co")
	if _, err := iss.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: expected ErrInvalidToken, got %v", err)
	}

	if _, err := iss.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: expected ErrInvalidToken, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"", "", ErrMissingToken},
		{"Basic abc", "", ErrInvalidToken},
		{"Bearer", "", ErrInvalidToken},
		{"Bearer a b", "", ErrInvalidToken},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BearerToken(%q) err = %v, want %v", tt.header, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}
