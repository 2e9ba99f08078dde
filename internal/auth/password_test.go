package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("registrar-2026")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("unexpected hash format: %s", hash)
	}

	again, _ := HashPassword("registrar-2026")
	if hash == again {
		t.Error("two hashes of the same password should use different salts")
	}

	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("registrar-2026")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
		wantErr  bool
	}{
		{"correct password", "registrar-2026", hash, true, false},
		{"wrong password", "registrar-2025", hash, false, false},
		{"garbage", "registrar-2026", "invalid", false, true},
		{"wrong algorithm", "registrar-2026", "$bcrypt$v=1$m=65536,t=1,p=4$salt$hash", false, true},
		{"bad salt", "registrar-2026", "$argon2id$v=19$m=65536,t=1,p=4$!!$AAAA", false, true},
		{"zero threads", "registrar-2026", strings.Replace(hash, "p=4", "p=0", 1), false, true},
		{"bad version", "registrar-2026", strings.Replace(hash, "v=19", "v=16", 1), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyPassword(tt.password, tt.hash)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidHash) {
				t.Errorf("error should wrap ErrInvalidHash: %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
