package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("papertrader", []byte("test-secret"), time.Hour)
	token, err := svc.SignToken("session-123")
	if err != nil {
		t.Fatal(err)
	}
	id, err := svc.ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if id != "session-123" {
		t.Fatalf("subject: got %q", id)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signer := NewService("papertrader", []byte("secret-a"), time.Hour)
	verifier := NewService("papertrader", []byte("secret-b"), time.Hour)
	token, err := signer.SignToken("session-123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	svc := NewService("papertrader", []byte("test-secret"), -time.Minute)
	token, err := svc.SignToken("session-123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestCheckAdminToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !CheckAdminToken(string(hash), "hunter2") {
		t.Fatal("valid token rejected")
	}
	if CheckAdminToken(string(hash), "wrong") {
		t.Fatal("wrong token accepted")
	}
	if CheckAdminToken("", "hunter2") {
		t.Fatal("empty hash accepted")
	}
}
