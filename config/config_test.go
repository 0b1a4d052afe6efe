package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ByLCY/keepsake/book"
	"github.com/ByLCY/keepsake/layout"
)

func TestDefaultMatchesTheme(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, book.DefaultFilename, c.Output)
	assert.Equal(t, 2000, c.MaxPhotoEdge)
	assert.Equal(t, int64(10<<20), c.MaxUploadBytes())

	theme, err := c.Theme()
	require.NoError(t, err)
	want := layout.DefaultTheme()
	assert.InDelta(t, want.PageWidth, theme.PageWidth, 1e-9)
	assert.InDelta(t, want.PageHeight, theme.PageHeight, 1e-9)
	assert.InDelta(t, want.PhotoBox.X, theme.PhotoBox.X, 1e-9)
	assert.Equal(t, want.Colors, theme.Colors)
	assert.Equal(t, want.Strings, theme.Strings)
	assert.Equal(t, want.LineHeightFactor, theme.LineHeightFactor)
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse([]byte(`
output: memories.pdf
page:
  width: 210mm
  height: 297mm
text:
  caption_size: 18
  line_height: 1.5
colors:
  accent: "#c00"
strings:
  title: Together
  from: "With love, ${author}"
server:
  addr: "127.0.0.1:9000"
  session_ttl: 30m
  max_upload_mb: 5
`))
	require.NoError(t, err)
	assert.Equal(t, "memories.pdf", c.Output)
	assert.Equal(t, 30*time.Minute, c.Server.SessionTTL)
	assert.Equal(t, "127.0.0.1:9000", c.Server.Addr)
	assert.Equal(t, int64(5<<20), c.MaxUploadBytes())

	theme, err := c.Theme()
	require.NoError(t, err)
	assert.InDelta(t, 595.28, theme.PageWidth, 0.1)
	assert.Equal(t, 18.0, theme.CaptionFontSize)
	assert.Equal(t, 1.5, theme.LineHeightFactor)
	assert.Equal(t, layout.Color{R: 0xcc, G: 0, B: 0}, theme.Colors.Accent)
	assert.Equal(t, "Together", theme.Strings.Title)
	assert.Equal(t, "With love, ${author}", theme.Strings.From)
	assert.Equal(t, "To: ${recipient}", theme.Strings.To)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"line height": "text:\n  line_height: 2\n",
		"oversample":  "text:\n  oversample: 8\n",
		"color":       "colors:\n  accent: pink\n",
		"page width":  "page:\n  width: wide\n",
		"output path": "output: ../escape.pdf\n",
		"photo edge":  "max_photo_edge: -1\n",
		"bad yaml":    "text: [",
		"tiny page":   "page:\n  width: 100pt\n",
		"zero height": "page:\n  height: 0mm\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoadResolvesFontRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "body.ttf"), goregular.TTF, 0o644))
	path := filepath.Join(dir, "keepsake.yaml")
	require.NoError(t, os.WriteFile(path, []byte("font: body.ttf\ndebug_layout: out/layout.json\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	data, err := c.FontData()
	require.NoError(t, err)
	assert.Equal(t, goregular.TTF, data)

	opts, err := c.ExportOptions()
	require.NoError(t, err)
	assert.Equal(t, book.DefaultFilename, opts.Filename)
	assert.Equal(t, "out/layout.json", opts.DebugPath)
	assert.NotEmpty(t, opts.FontData)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Addr)
}

func TestExampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "examples", "keepsake.yaml"))
	require.NoError(t, err)
	assert.Equal(t, book.DefaultFilename, c.Output)
	_, err = c.ExportOptions()
	require.NoError(t, err)
}
