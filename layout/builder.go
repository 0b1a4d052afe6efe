package layout

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ByLCY/keepsake/binding"
	"github.com/ByLCY/keepsake/caption"
)

const creator = "keepsake"

// ErrNoPhotos 表示书中没有任何照片，不会生成任何页面。
var ErrNoPhotos = errors.New("请至少上传一张照片")

// Book 是布局阶段的输入：封面文字与按顺序排列的照片。
type Book struct {
	Meta   BookMeta
	Photos []BookPhoto
}

// BookMeta 是封面上的三段自由文本，留空时使用 Theme.Strings 中的缺省值。
type BookMeta struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Recipient string `json:"recipient"`
}

// BookPhoto 是一张已解码（或解码失败）的照片及其说明文字。
type BookPhoto struct {
	Name    string
	Image   image.Image
	Width   int
	Height  int
	Caption string
	Err     error // 解码失败的原因，非空时该页使用占位框
}

// Build 生成封面与逐张照片页。单张照片失败不会中断排版，而是记录在 Result.Failures 中。
func Build(ctx context.Context, book Book, opts BuildOptions) (*Result, error) {
	if len(book.Photos) == 0 {
		return nil, ErrNoPhotos
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if err := opts.Theme.Validate(); err != nil {
		return nil, fmt.Errorf("layout: 版式无效: %w", err)
	}

	b := &bookBuilder{theme: opts.Theme, ts: opts.Typesetter}
	meta := b.resolveMeta(book.Meta)

	cover, err := b.coverPage(meta)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Pages: []Page{cover},
		Meta: DocumentMeta{
			Title:    meta.Title,
			Author:   meta.Author,
			Subject:  b.interpolate(b.theme.Strings.To, meta, nil),
			Creator:  creator,
			Keywords: []string{"memory book", "photos"},
		},
	}

	for i, photo := range book.Photos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, failure, err := b.photoPage(i, photo, meta)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			res.Failures = append(res.Failures, *failure)
		}
		res.Pages = append(res.Pages, page)
	}
	return res, nil
}

type bookBuilder struct {
	theme Theme
	ts    Typesetter
}

func (b *bookBuilder) resolveMeta(m BookMeta) BookMeta {
	s := b.theme.Strings
	return BookMeta{
		Title:     fallback(m.Title, s.Title),
		Author:    fallback(m.Author, s.Author),
		Recipient: fallback(m.Recipient, s.Recipient),
	}
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func (b *bookBuilder) interpolate(tpl string, meta BookMeta, extra map[string]any) string {
	vars := binding.Vars{
		"title":     meta.Title,
		"author":    meta.Author,
		"recipient": meta.Recipient,
	}
	for k, v := range extra {
		vars[k] = v
	}
	return binding.Interpolate(tpl, vars)
}

// coverPage 生成封面：顶栏、两侧圆点、标题、分隔线、From/To 卡片与底部三个圆点。
func (b *bookBuilder) coverPage(meta BookMeta) (Page, error) {
	t := b.theme
	c := t.Colors
	pw, ph := t.PageWidth, t.PageHeight
	cx := pw / 2

	page := Page{Kind: "cover", Width: pw, Height: ph, Background: colorPtr(c.CoverBackground)}
	page.Rects = append(page.Rects, Rect{X: 0, Y: 0, Width: pw, Height: t.HeaderHeight, FillColor: colorPtr(c.Accent)})
	page.Circles = append(page.Circles,
		Circle{CX: 80, CY: t.HeaderHeight / 2, R: 15, FillColor: c.HeaderDots},
		Circle{CX: pw - 80, CY: t.HeaderHeight / 2, R: 15, FillColor: c.HeaderDots},
	)

	title, err := b.textImage(meta.Title, t.TitleFontSize, pw-100, Box{X: 50, Y: t.HeaderHeight + 90, Width: pw - 100, Height: 80}, "center")
	if err != nil {
		return Page{}, fmt.Errorf("排版标题失败: %w", err)
	}
	page.Images = append(page.Images, title)

	lineY := t.HeaderHeight + 180
	page.Lines = append(page.Lines, Line{X1: cx - 150, Y1: lineY, X2: cx + 150, Y2: lineY, Color: c.Accent, Width: 2})

	cardY := lineY + 30
	page.Rects = append(page.Rects, Rect{
		X: cx - 180, Y: cardY, Width: 360, Height: 120, Radius: 10,
		FillColor: colorPtr(c.Paper), StrokeColor: colorPtr(c.Accent), StrokeWidth: 1,
	})
	from, err := b.textImage(b.interpolate(t.Strings.From, meta, nil), t.NameFontSize, 320, Box{X: cx - 160, Y: cardY + 10, Width: 320, Height: 50}, "center")
	if err != nil {
		return Page{}, fmt.Errorf("排版署名失败: %w", err)
	}
	to, err := b.textImage(b.interpolate(t.Strings.To, meta, nil), t.NameFontSize, 320, Box{X: cx - 160, Y: cardY + 60, Width: 320, Height: 50}, "center")
	if err != nil {
		return Page{}, fmt.Errorf("排版收件人失败: %w", err)
	}
	page.Images = append(page.Images, from, to)

	page.Circles = append(page.Circles,
		Circle{CX: cx - 30, CY: ph - 50, R: 8, FillColor: c.Blush},
		Circle{CX: cx, CY: ph - 50, R: 8, FillColor: c.Accent},
		Circle{CX: cx + 30, CY: ph - 50, R: 8, FillColor: c.Blush},
	)
	return page, nil
}

// photoPage 生成第 index 张照片的页面；照片不可用时返回占位页与失败记录。
func (b *bookBuilder) photoPage(index int, photo BookPhoto, meta BookMeta) (Page, *Failure, error) {
	t := b.theme
	c := t.Colors
	pw, ph := t.PageWidth, t.PageHeight
	box := t.PhotoBox
	pad := t.FramePadding
	frame := Box{X: box.X - pad, Y: box.Y - pad, Width: box.Width + 2*pad, Height: box.Height + 2*pad}

	page := Page{Kind: "photo", Width: pw, Height: ph, Background: colorPtr(c.PhotoBackground)}
	page.Rects = append(page.Rects,
		Rect{X: 0, Y: 0, Width: pw, Height: 8, FillColor: colorPtr(c.Accent)},
		Rect{X: box.X + t.ShadowOffset, Y: box.Y + t.ShadowOffset, Width: box.Width, Height: box.Height, Radius: 5, FillColor: colorPtr(c.Shadow)},
		Rect{X: frame.X, Y: frame.Y, Width: frame.Width, Height: frame.Height, Radius: 5, FillColor: colorPtr(c.Paper)},
	)

	var failure *Failure
	if img, err := placePhoto(photo, box); err != nil {
		failure = &Failure{Index: index, Name: photo.Name, Reason: err.Error(), Err: err}
		page.Rects = append(page.Rects, Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height, FillColor: colorPtr(c.PhotoBackground)})
		notice := b.interpolate(t.Strings.Unavailable, meta, map[string]any{"name": photo.Name, "index": index + 1})
		placeholder, err := b.textImage(notice, t.CaptionFontSize, box.Width-t.TextMarginX, box, "center")
		if err != nil {
			return Page{}, nil, fmt.Errorf("排版占位文字失败: %w", err)
		}
		page.Images = append(page.Images, placeholder)
	} else {
		page.Images = append(page.Images, img)
	}

	page.Borders = append(page.Borders, Rect{
		X: frame.X, Y: frame.Y, Width: frame.Width, Height: frame.Height, Radius: 5,
		StrokeColor: colorPtr(c.Accent), StrokeWidth: 2,
	})

	captionBox := Box{X: t.CaptionInset, Y: box.Y + box.Height + t.CaptionGap, Width: pw - 2*t.CaptionInset, Height: t.CaptionBoxHeight}
	page.Rects = append(page.Rects, Rect{
		X: captionBox.X, Y: captionBox.Y, Width: captionBox.Width, Height: captionBox.Height, Radius: 8,
		FillColor: colorPtr(c.Paper), StrokeColor: colorPtr(c.Blush), StrokeWidth: 1,
	})
	if strings.TrimSpace(photo.Caption) != "" {
		img, err := b.textImage(photo.Caption, t.CaptionFontSize, captionBox.Width-t.TextMarginX, captionBox, "center")
		if err != nil {
			return Page{}, nil, fmt.Errorf("排版第 %d 张照片说明失败: %w", index+1, err)
		}
		page.Images = append(page.Images, img)
	}

	page.Texts = append(page.Texts, TextBox{
		Content:  b.interpolate(t.Strings.PageLabel, meta, map[string]any{"page": index + 1}),
		X:        pw / 2,
		Y:        ph - 30,
		FontSize: t.PageNumberFontSize,
		Color:    c.PageNumber,
		Align:    "center",
	})
	page.Circles = append(page.Circles, Circle{CX: pw / 2, CY: ph - 45, R: 4, FillColor: c.Blush})
	return page, failure, nil
}

// placePhoto 把照片按比例放进照片框并水平居中。
func placePhoto(photo BookPhoto, box Box) (ImageBox, error) {
	if photo.Err != nil {
		return ImageBox{}, photo.Err
	}
	if photo.Image == nil {
		return ImageBox{}, fmt.Errorf("照片未解码")
	}
	placed, err := box.Place(float64(photo.Width), float64(photo.Height), "center")
	if err != nil {
		return ImageBox{}, err
	}
	return ImageBox{
		Source: "photo:" + photo.Name,
		X:      placed.X,
		Y:      placed.Y,
		Width:  placed.Width,
		Height: placed.Height,
		Image:  photo.Image,
	}, nil
}

// textImage 按 wrap 宽度折行，位图宽度为 wrap 加左右边距。
// 位图比 slot 宽时 slot 向两侧对称外延，多出的只是空白边距；位图过高时等比缩小。
func (b *bookBuilder) textImage(text string, fontSize, wrap float64, slot Box, valign string) (ImageBox, error) {
	t := b.theme
	bm, err := b.ts.Rasterize(text, caption.Options{
		FontSize:         fontSize,
		MaxWidth:         wrap,
		LineHeightFactor: t.LineHeightFactor,
		MarginX:          t.TextMarginX,
		MarginY:          t.TextMarginY,
		NoMargin:         t.TextMarginX == 0 && t.TextMarginY == 0,
		Scale:            t.Oversample,
		Color:            t.Colors.Text.RGBA(),
	})
	if err != nil {
		return ImageBox{}, err
	}
	pad := max(bm.Width-slot.Width, 0) / 2
	outer := Box{X: slot.X - pad, Y: slot.Y, Width: slot.Width + 2*pad, Height: slot.Height}
	placed, err := outer.Place(bm.Width, bm.Height, valign)
	if err != nil {
		return ImageBox{}, err
	}
	return ImageBox{
		Source: "text:" + text,
		X:      placed.X,
		Y:      placed.Y,
		Width:  placed.Width,
		Height: placed.Height,
		Image:  bm.Image,
	}, nil
}

func colorPtr(c Color) *Color { return &c }
