package crypto

import (
	"strings"
	"testing"
)

func TestSignQueryIsDeterministic(t *testing.T) {
	auth := HMACAuth{Key: "test-key", Secret: "test-secret"}
	query := "symbol=BNBBTC&side=BUY&type=MARKET&quantity=0.2&timestamp=1700000000000"

	a := auth.SignQuery(query)
	b := auth.SignQuery(query)
	if a != b {
		t.Fatalf("signature not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if auth2 := (HMACAuth{Key: "test-key", Secret: "other"}); auth2.SignQuery(query) == a {
		t.Fatalf("different secrets produced the same signature")
	}
}

func TestHMACAuthStringRedactsSecrets(t *testing.T) {
	auth := HMACAuth{Key: "abcdef123456", Secret: "supersecretvalue"}
	s := auth.String()
	if strings.Contains(s, "supersecretvalue") || strings.Contains(s, "abcdef123456") {
		t.Fatalf("String leaked credentials: %s", s)
	}
}

func TestEncryptDecryptSecretRoundTrip(t *testing.T) {
	blob, err := EncryptSecret("my-api-secret", "password123")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	got, err := DecryptSecret(blob, "password123")
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if got != "my-api-secret" {
		t.Fatalf("round trip = %q, want %q", got, "my-api-secret")
	}

	if _, err := DecryptSecret(blob, "wrong"); err == nil {
		t.Fatalf("expected failure with wrong password")
	}
}

func TestEncryptSecretRejectsEmptyInputs(t *testing.T) {
	if _, err := EncryptSecret("", "pw"); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := EncryptSecret("secret", ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
