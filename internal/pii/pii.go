package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Codec encrypts player contact details at rest with AES-256-GCM. The
// wire form is base64(iv):base64(ciphertext):base64(tag) so ciphertext
// and tag can be inspected and rotated independently of storage.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec parses a 64-hex-character (32 byte) key.
func NewCodec(keyHex string) (*Codec, error) {
	keyHex = strings.TrimSpace(keyHex)
	if len(keyHex) != 64 {
		return nil, errors.New("ENCRYPTION_KEY_HEX must be 64 hex characters (32 bytes)")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY_HEX: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

func (c *Codec) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagSize := c.aead.Overhead()
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return base64.StdEncoding.EncodeToString(iv) + ":" +
		base64.StdEncoding.EncodeToString(ct) + ":" +
		base64.StdEncoding.EncodeToString(tag), nil
}

func (c *Codec) Decrypt(payload string) (string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return "", errors.New("malformed encrypted payload")
	}
	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	tag, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", err
	}
	plain, err := c.aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail is a shallow shape check, enough for signup hygiene.
func ValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

var digitRe = regexp.MustCompile(`\D`)

// ValidPhone accepts anything carrying at least 7 digits.
func ValidPhone(phone string) bool {
	return len(digitRe.ReplaceAllString(phone, "")) >= 7
}

// MaskEmail keeps up to two leading characters and the full domain.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at < 0 {
		return "***"
	}
	user, domain := email[:at], email[at+1:]
	var safe string
	if len(user) <= 2 {
		safe = user[:1] + "*"
	} else {
		stars := len(user) - 2
		if stars > 10 {
			stars = 10
		}
		safe = user[:2] + strings.Repeat("*", stars)
	}
	return safe + "@" + domain
}

// MaskPhone keeps only the last four digits.
func MaskPhone(phone string) string {
	digits := digitRe.ReplaceAllString(phone, "")
	if digits == "" {
		return ""
	}
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return "***" + digits[len(digits)-4:]
}
