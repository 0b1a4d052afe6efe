package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/keepsake/fonts"
	"github.com/ByLCY/keepsake/layout"
	"github.com/ByLCY/keepsake/renderer"
)

const defaultStrokeWidth = 1.0 // pt

// Renderer draws layout results via github.com/tdewolff/canvas.
// Layout coordinates are pt with a top-left origin; canvas works in mm, so every
// length is converted at the boundary.
type Renderer struct {
	fontData []byte

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	// FontData 是页码等直接绘制文字所用的 TTF/OTF，为空时使用内置 Go 字体。
	FontData []byte
}

// NewRenderer creates a renderer that uses the built-in Go font.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with an injected font.
func NewRendererWithOptions(opts Options) *Renderer {
	return &Renderer{fontData: opts.FontData}
}

// Render renders the result into a PDF byte slice, one PDF page per layout page.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	first := result.Pages[0]
	writer := pdf.New(&buf, toMm(first.Width), toMm(first.Height), nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if page.Width <= 0 || page.Height <= 0 {
			return nil, fmt.Errorf("第 %d 页尺寸无效: %gx%g", i+1, page.Width, page.Height)
		}
		if i > 0 {
			writer.NewPage(toMm(page.Width), toMm(page.Height))
		}
		c := canvas.New(toMm(page.Width), toMm(page.Height))
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page); err != nil {
			return nil, fmt.Errorf("渲染第 %d 页失败: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page) error {
	if page.Background != nil {
		ctx.SetFillColor(colorFromLayout(*page.Background))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(toMm(page.Width), toMm(page.Height)))
	}
	r.drawRects(ctx, page.Rects)
	r.drawCircles(ctx, page.Circles)
	r.drawLines(ctx, page.Lines)
	if err := r.drawImages(ctx, page.Images); err != nil {
		return err
	}
	r.drawRects(ctx, page.Borders)
	for _, tb := range page.Texts {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return err
		}
	}
	return nil
}

// drawRects 绘制矩形；FillColor/StrokeColor 为空时对应部分透明。
func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		if rc.Width <= 0 || rc.Height <= 0 {
			continue
		}
		ctx.SetFillColor(optionalColor(rc.FillColor))
		ctx.SetStrokeColor(optionalColor(rc.StrokeColor))
		w := rc.StrokeWidth
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetStrokeWidth(toMm(w))

		width, height := toMm(rc.Width), toMm(rc.Height)
		path := canvas.Rectangle(width, height)
		if rc.Radius > 0 {
			path = canvas.RoundedRectangle(width, height, toMm(rc.Radius))
		}
		ctx.DrawPath(toMm(rc.X), toMm(rc.Y), path)
	}
}

// drawCircles 绘制实心圆
func (r *Renderer) drawCircles(ctx *canvas.Context, circles []layout.Circle) {
	for _, c := range circles {
		if c.R <= 0 {
			continue
		}
		ctx.SetFillColor(colorFromLayout(c.FillColor))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(toMm(c.CX), toMm(c.CY), canvas.Circle(toMm(c.R)))
	}
}

// drawLines 绘制直线列表
func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line) {
	ctx.SetFillColor(canvas.Transparent)
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(toMm(w))
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(toMm(ln.X2-ln.X1), toMm(ln.Y2-ln.Y1))
		ctx.DrawPath(toMm(ln.X1), toMm(ln.Y1), p)
	}
}

// drawImages 以 ImageBox 给出的尺寸绘制位图。布局已保证比例，
// 这里只按宽度换算分辨率，不做任何拉伸。
func (r *Renderer) drawImages(ctx *canvas.Context, images []layout.ImageBox) error {
	for _, img := range images {
		if img.Image == nil {
			return fmt.Errorf("图片 %s 缺少位图数据", img.Source)
		}
		px := img.Image.Bounds().Dx()
		if px <= 0 || img.Image.Bounds().Dy() <= 0 || img.Width <= 0 || img.Height <= 0 {
			return fmt.Errorf("图片 %s 尺寸无效", img.Source)
		}
		dpmm := float64(px) / toMm(img.Width)
		ctx.DrawImage(toMm(img.X), toMm(img.Y), img.Image, canvas.DPMM(dpmm))
	}
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox) error {
	if tb.Content == "" {
		return nil
	}
	family, err := r.ensureFontFamily()
	if err != nil {
		return err
	}
	// canvas 的字号单位为 pt，与布局一致
	face := family.Face(tb.FontSize, colorFromLayout(tb.Color), canvas.FontRegular, canvas.FontNormal)

	var align canvas.TextAlign
	switch strings.ToLower(tb.Align) {
	case "center":
		align = canvas.Center
	case "right", "end":
		align = canvas.Right
	default:
		align = canvas.Left
	}
	ctx.DrawText(toMm(tb.X), toMm(tb.Y), canvas.NewTextLine(face, tb.Content, align))
	return nil
}

func (r *Renderer) ensureFontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.family != nil {
		return r.family, nil
	}
	data := r.fontData
	if len(data) == 0 {
		var err error
		if data, err = fonts.Load(fonts.Default, ""); err != nil {
			return nil, err
		}
	}
	family := canvas.NewFontFamily("keepsake")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体失败: %w", err)
	}
	r.family = family
	return family, nil
}

func optionalColor(c *layout.Color) color.Color {
	if c == nil {
		return canvas.Transparent
	}
	return colorFromLayout(*c)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

var toMm = layout.ToMm
