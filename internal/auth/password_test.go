package auth

import "testing"

func TestCheckPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Fatal("expected password to verify against its own hash")
	}
}

func TestCheckPasswordRejectsOtherPasswords(t *testing.T) {
	hash, err := HashPassword("password-one")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if CheckPassword("password-two", hash) {
		t.Fatal("expected mismatching password to fail verification")
	}
}

func TestCheckPasswordMalformedHashReturnsFalse(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatal("expected malformed hash to fail verification, not panic or pass")
	}
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	first, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected two hashes of the same password to differ")
	}
}
