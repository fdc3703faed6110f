package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	ph, err := HashPassword("correct horse", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if ph.Hash == "" || ph.Salt == "" {
		t.Fatalf("expected hash and salt, got %+v", ph)
	}
	if !VerifyPassword("correct horse", ph.Salt, "pepper", ph.Hash) {
		t.Fatalf("expected verification to succeed")
	}
	if VerifyPassword("wrong", ph.Salt, "pepper", ph.Hash) {
		t.Fatalf("wrong password must not verify")
	}
	if VerifyPassword("correct horse", ph.Salt, "other-pepper", ph.Hash) {
		t.Fatalf("wrong pepper must not verify")
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	a := MustHashPassword("pw", "pepper")
	b := MustHashPassword("pw", "pepper")
	if a.Salt == b.Salt || a.Hash == b.Hash {
		t.Fatalf("expected distinct salts and hashes")
	}
}
