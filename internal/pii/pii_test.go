package pii

import (
	"strings"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec(testKey)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	enc, err := c.Encrypt("jin.kazama@example.com")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if parts := strings.Split(enc, ":"); len(parts) != 3 {
		t.Fatalf("payload shape: %q", enc)
	}

	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if dec != "jin.kazama@example.com" {
		t.Fatalf("round trip: %q", dec)
	}
}

func TestCodecFreshIVPerMessage(t *testing.T) {
	c, _ := NewCodec(testKey)
	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Fatalf("two encryptions produced identical payloads")
	}
}

func TestCodecRejectsTampering(t *testing.T) {
	c, _ := NewCodec(testKey)
	enc, _ := c.Encrypt("secret")
	parts := strings.Split(enc, ":")
	parts[2] = parts[2][:len(parts[2])-4] + "AAA="
	if _, err := c.Decrypt(strings.Join(parts, ":")); err == nil {
		t.Fatalf("tampered tag accepted")
	}
	if _, err := c.Decrypt("not-a-payload"); err == nil {
		t.Fatalf("malformed payload accepted")
	}
}

func TestNewCodecKeyShape(t *testing.T) {
	if _, err := NewCodec("deadbeef"); err == nil {
		t.Fatalf("short key accepted")
	}
	if _, err := NewCodec(strings.Repeat("zz", 32)); err == nil {
		t.Fatalf("non-hex key accepted")
	}
}

func TestValidators(t *testing.T) {
	if !ValidEmail("a@b.co") || ValidEmail("not an email") || ValidEmail("") {
		t.Fatalf("email validation")
	}
	if !ValidPhone("+974 5555 1234") || ValidPhone("12345") {
		t.Fatalf("phone validation")
	}
}

func TestMasks(t *testing.T) {
	if got := MaskEmail("jin.kazama@example.com"); got != "ji********@example.com" {
		t.Fatalf("MaskEmail: %q", got)
	}
	if got := MaskEmail("ab@x.io"); got != "a*@x.io" {
		t.Fatalf("short user: %q", got)
	}
	if got := MaskEmail("nodomain"); got != "***" {
		t.Fatalf("no domain: %q", got)
	}
	if got := MaskPhone("+974 5555 1234"); got != "***1234" {
		t.Fatalf("MaskPhone: %q", got)
	}
	if got := MaskPhone("123"); got != "***" {
		t.Fatalf("short phone: %q", got)
	}
}
