package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "pw1" {
		t.Fatal("hash must not equal the plain password")
	}
	if !CheckPasswordHash("pw1", hash) {
		t.Fatal("expected password to match its hash")
	}
	if CheckPasswordHash("pw2", hash) {
		t.Fatal("expected different password to be rejected")
	}
	if CheckPasswordHash("pw1", "not-a-bcrypt-hash") {
		t.Fatal("expected malformed hash to be rejected")
	}
}

func TestGenerateRandomPassword(t *testing.T) {
	a, err := GenerateRandomPassword(16)
	if err != nil {
		t.Fatalf("GenerateRandomPassword: %v", err)
	}
	b, _ := GenerateRandomPassword(16)
	if a == b {
		t.Fatal("expected distinct passwords")
	}
	if len(a) < 16 {
		t.Fatalf("password too short: %q", a)
	}
	if c, _ := GenerateRandomPassword(0); c == "" {
		t.Fatal("expected default length for non-positive input")
	}
}
