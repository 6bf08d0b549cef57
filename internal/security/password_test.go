package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not be the plaintext")
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatal("correct password must verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password must not verify")
	}
	if CheckPassword("not-a-bcrypt-hash", "anything") {
		t.Fatal("garbage hash must not verify")
	}
}

func TestNewToken(t *testing.T) {
	a, err := NewToken(32)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	b, err := NewToken(32)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("tokens must be unique")
	}
	if len(a) < 32 {
		t.Fatalf("token too short: %d", len(a))
	}
}
