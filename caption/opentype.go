package caption

import (
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// OpenTypeHost implements Host on top of golang.org/x/image OpenType faces.
// Sizes are in pixels at 72 DPI, so 1px of font size equals 1pt of book space.
// OpenType faces are not safe for concurrent use; mu serializes every face access.
type OpenTypeHost struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

var _ Host = (*OpenTypeHost)(nil)

// NewOpenTypeHost parses TTF/OTF data.
func NewOpenTypeHost(data []byte) (*OpenTypeHost, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("caption: 解析字体失败: %w", err)
	}
	return &OpenTypeHost{font: parsed, faces: map[float64]font.Face{}}, nil
}

// faceLocked 需要在持有 h.mu 时调用。
func (h *OpenTypeHost) faceLocked(size float64) (font.Face, error) {
	if f, ok := h.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(h.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("caption: 创建字号 %g 的字体面失败: %w", size, err)
	}
	h.faces[size] = f
	return f, nil
}

// MeasureText returns the advance width of text in pixels. A face that cannot be
// created measures as zero, which leaves every word on its own line.
func (h *OpenTypeHost) MeasureText(text string, fontSize float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, err := h.faceLocked(fontSize)
	if err != nil {
		return 0
	}
	return fixedToFloat(font.MeasureString(f, text))
}

// MissingGlyphs 返回 text 中字体没有字形的字符（去重，按出现顺序），
// 这些字符会被画成缺字方框。空白与控制字符不计入。
func (h *OpenTypeHost) MissingGlyphs(text string) []rune {
	var buf sfnt.Buffer
	var missing []rune
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) || slices.Contains(missing, r) {
			continue
		}
		if idx, err := h.font.GlyphIndex(&buf, r); err != nil || idx == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

// NewSurface allocates a transparent RGBA surface.
func (h *OpenTypeHost) NewSurface(width, height int) (Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyBitmap
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return &rgbaSurface{host: h, img: img}, nil
}

// Close releases cached faces.
func (h *OpenTypeHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for size, f := range h.faces {
		f.Close()
		delete(h.faces, size)
	}
	return nil
}

type rgbaSurface struct {
	host *OpenTypeHost
	img  *image.RGBA
}

// DrawText draws text with its line box top-left at (x, y).
func (s *rgbaSurface) DrawText(text string, x, y, fontSize float64, col color.Color) {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	f, err := s.host.faceLocked(fontSize)
	if err != nil {
		return
	}
	ascent := f.Metrics().Ascent
	drawer := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(col),
		Face: f,
		Dot: fixed.Point26_6{
			X: floatToFixed(x),
			Y: floatToFixed(y) + ascent,
		},
	}
	drawer.DrawString(text)
}

func (s *rgbaSurface) Image() image.Image { return s.img }

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }
