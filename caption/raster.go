package caption

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// 缺省左右共留 40，上下共留 20，2 倍过采样。
const (
	DefaultMarginX    = 40.0
	DefaultMarginY    = 20.0
	DefaultOversample = 2.0
	maxOversample     = 4.0
)

// ErrEmptyBitmap 表示计算出的位图尺寸为零。
var ErrEmptyBitmap = errors.New("caption: 位图尺寸为零")

// Options 控制位图化过程，长度单位与 fontSize 相同（逻辑像素）。
type Options struct {
	FontSize         float64
	MaxWidth         float64
	LineHeightFactor float64
	MarginX          float64 // <=0 时取 DefaultMarginX
	MarginY          float64 // <=0 时取 DefaultMarginY
	NoMargin         bool    // 不留边距，忽略 MarginX/MarginY
	Scale            float64 // 过采样倍数，<=0 时取 DefaultOversample
	Color            color.Color
}

func (o *Options) setDefaults() {
	if o.LineHeightFactor <= 0 {
		o.LineHeightFactor = DefaultLineHeightFactor
	}
	if o.NoMargin {
		o.MarginX, o.MarginY = 0, 0
	} else {
		if o.MarginX <= 0 {
			o.MarginX = DefaultMarginX
		}
		if o.MarginY <= 0 {
			o.MarginY = DefaultMarginY
		}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultOversample
	}
	if o.Scale > maxOversample {
		o.Scale = maxOversample
	}
	if o.Color == nil {
		o.Color = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	}
}

// Bitmap 是位图化后的文本块。Width/Height 为逻辑尺寸，
// 像素尺寸为逻辑尺寸乘以 Scale。
type Bitmap struct {
	Image  image.Image `json:"-"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Scale  float64     `json:"scale"`
	Block  Block       `json:"block"`
}

// Rasterize 折行后把每一行水平居中、自上而下绘制到新的位图上。
func Rasterize(h Host, text string, opts Options) (*Bitmap, error) {
	if h == nil {
		return nil, fmt.Errorf("caption: 缺少字体后端")
	}
	if opts.FontSize <= 0 {
		return nil, fmt.Errorf("caption: 字号必须大于 0，实际 %g", opts.FontSize)
	}
	if opts.MaxWidth <= 0 {
		return nil, fmt.Errorf("caption: 最大宽度必须大于 0，实际 %g", opts.MaxWidth)
	}
	opts.setDefaults()

	block := LayoutWithFactor(text, opts.FontSize, opts.MaxWidth, opts.LineHeightFactor, h)
	width := opts.MaxWidth + opts.MarginX
	height := block.Height() + opts.MarginY

	pw := int(math.Ceil(width * opts.Scale))
	ph := int(math.Ceil(height * opts.Scale))
	if pw <= 0 || ph <= 0 {
		return nil, ErrEmptyBitmap
	}
	surface, err := h.NewSurface(pw, ph)
	if err != nil {
		return nil, fmt.Errorf("caption: 创建位图失败: %w", err)
	}

	size := opts.FontSize * opts.Scale
	lineHeight := block.LineHeight * opts.Scale
	top := opts.MarginY / 2 * opts.Scale
	for i, line := range block.Lines {
		if line == "" {
			continue
		}
		lw := h.MeasureText(line, size)
		x := (float64(pw) - lw) / 2
		surface.DrawText(line, x, top+float64(i)*lineHeight, size, opts.Color)
	}

	return &Bitmap{
		Image:  surface.Image(),
		Width:  width,
		Height: height,
		Scale:  opts.Scale,
		Block:  block,
	}, nil
}

// Engine 把 Host 包装成按文字生成位图的排版器。
type Engine struct {
	Host Host
}

// MissingGlyphs 在 Host 能检查字形覆盖时返回缺失的字符，否则返回 nil。
func (e Engine) MissingGlyphs(text string) []rune {
	if g, ok := e.Host.(interface{ MissingGlyphs(string) []rune }); ok {
		return g.MissingGlyphs(text)
	}
	return nil
}

// Rasterize 调用包级 Rasterize。
func (e Engine) Rasterize(text string, opts Options) (*Bitmap, error) {
	return Rasterize(e.Host, text, opts)
}
