package hash

import (
	"strings"
	"testing"
)

func TestBcrypt(t *testing.T) {
	h := NewBcrypt(4, "pepper")

	hashed, err := h.Hash("s3cretPass")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !h.Verify(string(hashed), "s3cretPass") {
		t.Fatal("expected bcrypt verify to succeed")
	}
	if h.Verify(string(hashed), "wrong") {
		t.Fatal("expected bcrypt verify to fail for wrong input")
	}
	if NewBcrypt(4, "other").Verify(string(hashed), "s3cretPass") {
		t.Fatal("expected bcrypt verify to fail with another pepper")
	}
}

func TestArgon2id(t *testing.T) {
	h := NewArgon2id("pepper")

	hashed, err := h.Hash("s3cretPass")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(string(hashed), argon2idPrefix) {
		t.Fatalf("unexpected format %q", hashed)
	}
	if !h.Verify(string(hashed), "s3cretPass") {
		t.Fatal("expected argon2id verify to succeed")
	}

	tests := []struct {
		name   string
		hashed string
		input  string
	}{
		{name: "wrong input", hashed: string(hashed), input: "wrong"},
		{name: "empty input", hashed: string(hashed), input: ""},
		{name: "not argon2id", hashed: "$2a$10$abc", input: "s3cretPass"},
		{name: "truncated", hashed: "$argon2id$v=19$m=1", input: "s3cretPass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h.Verify(tt.hashed, tt.input) {
				t.Fatal("expected verify to fail")
			}
		})
	}
}

func TestPassword_DetectsAlgorithm(t *testing.T) {
	b := NewBcrypt(4, "p")
	a := NewArgon2id("p")

	bHash, err := b.Hash("pw-123456")
	if err != nil {
		t.Fatalf("bcrypt Hash() error = %v", err)
	}
	aHash, err := a.Hash("pw-123456")
	if err != nil {
		t.Fatalf("argon2id Hash() error = %v", err)
	}

	for _, algo := range []string{"bcrypt", "argon2id"} {
		p := NewPassword(algo, b, a)
		if !p.Verify(string(bHash), "pw-123456") {
			t.Fatalf("%s: expected bcrypt hash to verify", algo)
		}
		if !p.Verify(string(aHash), "pw-123456") {
			t.Fatalf("%s: expected argon2id hash to verify", algo)
		}
	}

	fresh, err := NewPassword("argon2id", b, a).Hash("pw-123456")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(string(fresh), argon2idPrefix) {
		t.Fatalf("expected argon2id output, got %q", fresh)
	}
}

func TestHMACSHA256(t *testing.T) {
	h := NewHMACSHA256("secret")

	if h.Sum("123456") != h.Sum("123456") {
		t.Fatal("expected deterministic output")
	}
	if h.Sum("123456") == h.Sum("654321") {
		t.Fatal("expected different output for different input")
	}
	if h.Sum("123456") == NewHMACSHA256("other").Sum("123456") {
		t.Fatal("expected different output for different key")
	}
	if !h.Verify(h.Sum("123456"), "123456") {
		t.Fatal("expected verify to succeed")
	}
	if len(h.Sum("x")) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h.Sum("x")))
	}
}
