package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := hex.EncodeToString(bytes.Repeat([]byte{7}, 32))
	svc, err := New(key)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service")
	}
	sealed, err := svc.EncryptString("GB29NWBK60161331926819")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("NWBK")) {
		t.Fatal("ciphertext leaks plaintext")
	}
	plain, err := svc.DecryptString(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "GB29NWBK60161331926819" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestUnconfiguredPassThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := svc.Encrypt([]byte("plain"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if string(out) != "plain" {
		t.Fatalf("expected pass-through, got %q", out)
	}
}

func TestRejectsShortKey(t *testing.T) {
	if _, err := New("short"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestMask(t *testing.T) {
	if got := Mask("12345678"); got != "****5678" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := Mask("123"); got != "123" {
		t.Fatalf("short values stay as-is, got %q", got)
	}
}

func TestRetiredKeyStillOpens(t *testing.T) {
	oldKey := hex.EncodeToString(bytes.Repeat([]byte{1}, 32))
	newKey := hex.EncodeToString(bytes.Repeat([]byte{2}, 32))

	before, err := New(oldKey)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sealed, err := before.EncryptString("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	rotated, err := New(newKey, oldKey)
	if err != nil {
		t.Fatalf("new rotated: %v", err)
	}
	if !rotated.NeedsReseal(sealed) {
		t.Fatal("expected value under retired key to need resealing")
	}
	plain, err := rotated.DecryptString(sealed)
	if err != nil || plain != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("expected retired key to open value, got %q %v", plain, err)
	}

	fresh, err := rotated.EncryptString(plain)
	if err != nil {
		t.Fatalf("reseal: %v", err)
	}
	if rotated.NeedsReseal(fresh) {
		t.Fatal("expected freshly sealed value to use the active key")
	}

	withoutOld, err := New(newKey)
	if err != nil {
		t.Fatalf("new without retired: %v", err)
	}
	if _, err := withoutOld.Decrypt(sealed); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestBase64KeyAccepted(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{9}, 32))
	svc, err := New(key)
	if err != nil || !svc.Configured() {
		t.Fatalf("expected base64 key to load, got %v", err)
	}
}
