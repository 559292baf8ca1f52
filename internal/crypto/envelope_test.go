package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestSealOpen(t *testing.T) {
	s, err := NewSealer("k1", map[string][]byte{
		"k1": mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="),
	})
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	sealed, err := s.Seal("sk-test-123")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatalf("expected sealed prefix, got %q", sealed)
	}
	if strings.Contains(sealed, "sk-test-123") {
		t.Fatalf("sealed value leaks plaintext: %q", sealed)
	}

	out, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out != "sk-test-123" {
		t.Fatalf("expected plaintext credential, got %q", out)
	}
}

func TestSealEmptyStaysEmpty(t *testing.T) {
	s, err := NewSealer("k1", map[string][]byte{
		"k1": mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="),
	})
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := s.Seal("")
	if err != nil || sealed != "" {
		t.Fatalf("expected empty seal, got %q err=%v", sealed, err)
	}
	plain, err := s.Open("")
	if err != nil || plain != "" {
		t.Fatalf("expected empty open, got %q err=%v", plain, err)
	}
}

func TestOpenRejectsPlaintext(t *testing.T) {
	s, err := NewSealer("k1", map[string][]byte{
		"k1": mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="),
	})
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	if _, err := s.Open("sk-plain"); !errors.Is(err, ErrNotSealed) {
		t.Fatalf("expected ErrNotSealed, got %v", err)
	}
}

func TestRotationOpenOldSealNew(t *testing.T) {
	oldKey := mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	newKey := mustKey(t, "AQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQE=")

	oldSealer, err := NewSealer("old", map[string][]byte{"old": oldKey})
	if err != nil {
		t.Fatalf("old sealer: %v", err)
	}
	legacy, err := oldSealer.Seal("legacy")
	if err != nil {
		t.Fatalf("old seal: %v", err)
	}

	rotated, err := NewSealer("new", map[string][]byte{"old": oldKey, "new": newKey})
	if err != nil {
		t.Fatalf("rotated sealer: %v", err)
	}
	resealed, err := rotated.Reseal(legacy)
	if err != nil {
		t.Fatalf("reseal: %v", err)
	}
	if !strings.Contains(resealed, `"key_id":"new"`) {
		t.Fatalf("expected value sealed with new key, got %q", resealed)
	}

	newOnly, err := NewSealer("new", map[string][]byte{"new": newKey})
	if err != nil {
		t.Fatalf("new-only sealer: %v", err)
	}
	plain, err := newOnly.Open(resealed)
	if err != nil {
		t.Fatalf("open resealed: %v", err)
	}
	if plain != "legacy" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}
	if _, err := newOnly.Open(legacy); err == nil {
		t.Fatalf("expected unknown key error for retired key")
	}
}

func TestNewSealerValidatesKeys(t *testing.T) {
	if _, err := NewSealer("", map[string][]byte{"a": make([]byte, 32)}); err == nil {
		t.Fatalf("expected error for empty current key id")
	}
	if _, err := NewSealer("b", map[string][]byte{"a": make([]byte, 32)}); err == nil {
		t.Fatalf("expected error for missing current key")
	}
	if _, err := NewSealer("a", map[string][]byte{"a": make([]byte, 16)}); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func mustKey(t *testing.T, b64 string) []byte {
	t.Helper()
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if len(k) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(k))
	}
	return k
}
