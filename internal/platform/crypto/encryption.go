package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrUnknownKey         = errors.New("no configured key opens this value")
)

const keyIDLen = 4

type sealingKey struct {
	id   [keyIDLen]byte
	aead cipher.AEAD
}

// Service seals values with AES-256-GCM. Sealed values are
// keyID || nonce || ciphertext, where keyID is a short fingerprint of the
// key, so values written under a retired key can still be opened after
// rotation. An unconfigured service passes values through unchanged.
type Service struct {
	active  *sealingKey
	retired []*sealingKey
}

// New builds a service sealing with activeKey. retired keys are only used
// to open older values. Keys are 32 bytes given as hex, base64 or raw text.
func New(activeKey string, retired ...string) (*Service, error) {
	if activeKey == "" {
		return &Service{}, nil
	}
	active, err := loadKey(activeKey)
	if err != nil {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY: %w", err)
	}
	svc := &Service{active: active}
	for i, raw := range retired {
		k, err := loadKey(raw)
		if err != nil {
			return nil, fmt.Errorf("retired key %d: %w", i+1, err)
		}
		svc.retired = append(svc.retired, k)
	}
	return svc, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.active != nil
}

func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	k := s.active
	out := make([]byte, keyIDLen+k.aead.NonceSize(), keyIDLen+k.aead.NonceSize()+len(plain)+k.aead.Overhead())
	copy(out, k.id[:])
	nonce := out[keyIDLen:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return k.aead.Seal(out, nonce, plain, nil), nil
}

func (s *Service) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return sealed, nil
	}
	if len(sealed) < keyIDLen {
		return nil, ErrCiphertextTooShort
	}
	k := s.lookup(sealed[:keyIDLen])
	if k == nil {
		return nil, ErrUnknownKey
	}
	body := sealed[keyIDLen:]
	n := k.aead.NonceSize()
	if len(body) < n {
		return nil, ErrCiphertextTooShort
	}
	return k.aead.Open(nil, body[:n], body[n:], nil)
}

// NeedsReseal reports whether sealed was written under a key other than
// the active one.
func (s *Service) NeedsReseal(sealed []byte) bool {
	if !s.Configured() || len(sealed) < keyIDLen {
		return false
	}
	return string(sealed[:keyIDLen]) != string(s.active.id[:])
}

func (s *Service) lookup(id []byte) *sealingKey {
	if string(id) == string(s.active.id[:]) {
		return s.active
	}
	for _, k := range s.retired {
		if string(id) == string(k.id[:]) {
			return k
		}
	}
	return nil
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(value []byte) (string, error) {
	plain, err := s.Decrypt(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Mask keeps the last four characters of a sensitive value.
func Mask(value string) string {
	if len(value) <= 4 {
		return value
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

func loadKey(raw string) (*sealingKey, error) {
	key := decodeKey(raw)
	if len(key) != 32 {
		return nil, fmt.Errorf("must be 32 bytes after decoding, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(key)
	k := &sealingKey{aead: gcm}
	copy(k.id[:], sum[:keyIDLen])
	return k, nil
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil && len(decoded) == 32 {
			return decoded
		}
	}
	return []byte(raw)
}
