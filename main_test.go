package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ByLCY/keepsake/book"
	"github.com/ByLCY/keepsake/config"
	"github.com/ByLCY/keepsake/layout"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: uint8(y), B: 180, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunManifestToPDF(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "beach.png"), 90, 60)
	writePNG(t, filepath.Join(dir, "park.png"), 40, 80)
	manifest := `book "Our Memories" {
  from: "Alice"
  to: "Bob"
  photo "beach.png" { "Sunset at the beach" }
  photo "missing.png" { "lost" }
  photo "park.png"
}`
	in := filepath.Join(dir, "book.keepsake")
	if err := os.WriteFile(in, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	opts, err := cfg.ExportOptions()
	if err != nil {
		t.Fatalf("export options: %v", err)
	}
	exporter, err := book.New(opts)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	defer exporter.Close()

	out := filepath.Join(dir, "out", cfg.Output)
	res, err := run(context.Background(), in, out, cfg.MaxPhotoEdge, exporter)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 4 {
		t.Fatalf("expected 4 pages, got %d", res.Pages)
	}
	if len(res.Failures) != 1 || res.Failures[0].Name != "missing.png" {
		t.Fatalf("expected missing.png to be reported, got %+v", res.Failures)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 PDF pages, got %d", n)
	}
}

func TestRunRejectsEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.keepsake")
	if err := os.WriteFile(in, []byte(`book "Nothing" { from: "Me" }`), 0o644); err != nil {
		t.Fatal(err)
	}
	exporter, err := book.New(book.Options{Theme: mustTheme(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer exporter.Close()
	if _, err := run(context.Background(), in, filepath.Join(dir, "x.pdf"), 0, exporter); err == nil {
		t.Fatalf("expected error for manifest without photos")
	}
	if _, err := os.Stat(filepath.Join(dir, "x.pdf")); !os.IsNotExist(err) {
		t.Fatalf("no file should be written, stat err = %v", err)
	}
}

func mustTheme(t *testing.T) layout.Theme {
	t.Helper()
	th, err := config.Default().Theme()
	if err != nil {
		t.Fatal(err)
	}
	return th
}
