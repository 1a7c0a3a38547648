package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := c.Render("signup.ok", map[string]any{"Tournament": "Tekken League", "Tag": "JinK", "Count": 5})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "JinK") || !strings.Contains(out, "#5") {
		t.Fatalf("render output: %q", out)
	}
}

func TestRenderMissingKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("missing key rendered")
	}
	if got := c.MustRender("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("MustRender fallback: %q", got)
	}
}

func TestRenderMissingField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// missingkey=error makes incomplete data an error, not "<no value>".
	if _, err := c.Render("signup.ok", map[string]any{"Tag": "x"}); err == nil {
		t.Fatalf("incomplete data rendered")
	}
}

func TestOverrideDirReplacesKeys(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "override.yaml"),
		[]byte("checkin:\n  repeat: \"custom repeat message\"\n"), 0o644)
	if err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("checkin.repeat", nil)
	if err != nil || out != "custom repeat message" {
		t.Fatalf("override: %q %v", out, err)
	}
	// Untouched keys keep the embedded text.
	if _, err := c.Render("ready.joined", nil); err != nil {
		t.Fatalf("embedded key lost: %v", err)
	}
}

func TestOverrideDuplicateKeysRejected(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("x:\n  y: \"one\"\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("x:\n  y: \"two\"\n"), 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate override keys accepted")
	}
}
