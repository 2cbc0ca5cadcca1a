package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestSealerRoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	s, err := NewSealer(key)
	if err != nil {
		t.Fatal(err)
	}

	a, err := s.Encrypt("sk-secret-value")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.Encrypt("sk-secret-value")
	if a == b {
		t.Error("two encryptions of the same value share a nonce")
	}

	got, err := s.Decrypt(a)
	if err != nil {
		t.Fatal(err)
	}
	if got != "sk-secret-value" {
		t.Errorf("Decrypt = %q", got)
	}

	other, _ := NewSealer("")
	if _, err := other.Decrypt(a); !errors.Is(err, ErrCiphertext) {
		t.Errorf("decrypt with another key err = %v", err)
	}
}

func TestNewSealerErrors(t *testing.T) {
	for _, key := range []string{"not base64!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := NewSealer(key); err == nil {
			t.Errorf("NewSealer(%q) succeeded", key)
		}
	}
}

func TestDecryptMalformed(t *testing.T) {
	s, _ := NewSealer("")
	for _, in := range []string{"%%%", base64.StdEncoding.EncodeToString([]byte("abc"))} {
		if _, err := s.Decrypt(in); !errors.Is(err, ErrCiphertext) {
			t.Errorf("Decrypt(%q) err = %v", in, err)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "***"},
		{"sk-1234567890abcd", "sk-...abcd"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.in); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
