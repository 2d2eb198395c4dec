package auth

import (
	"testing"
)

func TestIssueAndVerifyToken(t *testing.T) {
	issuer := NewTokenIssuer()

	token, err := issuer.IssueToken("operator-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	operator, err := issuer.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if operator != "operator-1" {
		t.Errorf("Expected operator-1, got %q", operator)
	}
}

func TestVerifyTokenStripsBearerPrefix(t *testing.T) {
	issuer := NewTokenIssuer()

	token, err := issuer.IssueToken("operator-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	operator, err := issuer.VerifyToken("Bearer " + token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if operator != "operator-1" {
		t.Errorf("Expected operator-1, got %q", operator)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer()

	if _, err := issuer.VerifyToken("not-a-token"); err == nil {
		t.Error("Expected error for malformed token")
	}
	if _, err := issuer.VerifyToken(""); err == nil {
		t.Error("Expected error for empty token")
	}
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewTokenIssuer()
	other := &TokenIssuer{secret: []byte("different-secret"), ttl: issuer.ttl}

	token, err := other.IssueToken("operator-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := issuer.VerifyToken(token); err == nil {
		t.Error("Expected error for token signed with a different secret")
	}
}
