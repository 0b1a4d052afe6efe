package fonts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func TestLoadBuiltins(t *testing.T) {
	cases := map[string][]byte{
		"":                   goregular.TTF,
		"builtin:go-regular": goregular.TTF,
		"built-in:go-bold":   gobold.TTF,
	}
	for src, want := range cases {
		got, err := Load(src, "")
		if err != nil {
			t.Fatalf("Load(%q): %v", src, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Load(%q) returned unexpected bytes", src)
		}
	}
	if _, err := Load("builtin:comic-sans", ""); err == nil {
		t.Fatalf("expected error for unknown builtin")
	}
}

func TestLoadRelativeToBaseDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom.ttf"), []byte("ttf"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load("custom.ttf", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "ttf" {
		t.Fatalf("got %q", got)
	}
	if _, err := Load("missing.ttf", dir); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
