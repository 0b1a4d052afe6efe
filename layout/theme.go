package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Palette 收集封面与照片页使用的颜色。
type Palette struct {
	CoverBackground Color `json:"coverBackground"`
	PhotoBackground Color `json:"photoBackground"`
	Accent          Color `json:"accent"`
	HeaderDots      Color `json:"headerDots"`
	Blush           Color `json:"blush"`
	Paper           Color `json:"paper"`
	Shadow          Color `json:"shadow"`
	Text            Color `json:"text"`
	PageNumber      Color `json:"pageNumber"`
}

// Strings 是缺省文案与插值模板，模板使用 ${name} 占位。
type Strings struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Recipient   string `json:"recipient"`
	From        string `json:"from"`
	To          string `json:"to"`
	PageLabel   string `json:"pageLabel"`
	Unavailable string `json:"unavailable"`
}

// Theme 描述整本书的版式常量（单位 pt，字号为逻辑像素，1px == 1pt）。
type Theme struct {
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`
	Colors     Palette `json:"colors"`
	Strings    Strings `json:"strings"`

	TitleFontSize      float64 `json:"titleFontSize"`
	NameFontSize       float64 `json:"nameFontSize"`
	CaptionFontSize    float64 `json:"captionFontSize"`
	PageNumberFontSize float64 `json:"pageNumberFontSize"`

	LineHeightFactor float64 `json:"lineHeightFactor"`
	Oversample       float64 `json:"oversample"`
	TextMarginX      float64 `json:"textMarginX"`
	TextMarginY      float64 `json:"textMarginY"`

	HeaderHeight     float64 `json:"headerHeight"`
	PhotoBox         Box     `json:"photoBox"`
	FramePadding     float64 `json:"framePadding"`
	ShadowOffset     float64 `json:"shadowOffset"`
	CaptionGap       float64 `json:"captionGap"`
	CaptionBoxHeight float64 `json:"captionBoxHeight"`
	CaptionInset     float64 `json:"captionInset"`
}

// A4 纸张尺寸（pt）。
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// DefaultTheme 返回缺省版式（A4，粉色系）。
func DefaultTheme() Theme {
	return Theme{
		PageWidth:  A4Width,
		PageHeight: A4Height,
		Colors: Palette{
			CoverBackground: Color{255, 240, 245},
			PhotoBackground: Color{255, 250, 250},
			Accent:          Color{220, 20, 60},
			HeaderDots:      Color{255, 105, 180},
			Blush:           Color{255, 182, 193},
			Paper:           Color{255, 255, 255},
			Shadow:          Color{200, 200, 200},
			Text:            Color{60, 60, 60},
			PageNumber:      Color{150, 150, 150},
		},
		Strings: Strings{
			Title:       "Our Memories",
			Author:      "Me",
			Recipient:   "You",
			From:        "From: ${author}",
			To:          "To: ${recipient}",
			PageLabel:   "${page}",
			Unavailable: "Photo unavailable: ${name}",
		},
		TitleFontSize:      32,
		NameFontSize:       20,
		CaptionFontSize:    16,
		PageNumberFontSize: 10,
		LineHeightFactor:   1.4,
		Oversample:         2,
		TextMarginX:        40,
		TextMarginY:        20,
		HeaderHeight:       120,
		PhotoBox:           Box{X: 56, Y: 80, Width: 480, Height: 360},
		FramePadding:       8,
		ShadowOffset:       4,
		CaptionGap:         40,
		CaptionBoxHeight:   80,
		CaptionInset:       40,
	}
}

// Validate 检查版式常量是否可用于排版。
func (t Theme) Validate() error {
	if t.PageWidth <= 0 || t.PageHeight <= 0 {
		return fmt.Errorf("页面尺寸无效：%gx%g", t.PageWidth, t.PageHeight)
	}
	if t.LineHeightFactor < 1.4 || t.LineHeightFactor > 1.6 {
		return fmt.Errorf("行高倍数需在 1.4~1.6 之间，实际 %g", t.LineHeightFactor)
	}
	if t.Oversample < 1 || t.Oversample > 4 {
		return fmt.Errorf("过采样倍数需在 1~4 之间，实际 %g", t.Oversample)
	}
	for name, v := range map[string]float64{
		"titleFontSize":      t.TitleFontSize,
		"nameFontSize":       t.NameFontSize,
		"captionFontSize":    t.CaptionFontSize,
		"pageNumberFontSize": t.PageNumberFontSize,
	} {
		if v <= 0 {
			return fmt.Errorf("%s 必须大于 0", name)
		}
	}
	if t.PhotoBox.Width <= 0 || t.PhotoBox.Height <= 0 {
		return fmt.Errorf("照片框尺寸无效：%gx%g", t.PhotoBox.Width, t.PhotoBox.Height)
	}
	if t.PhotoBox.X+t.PhotoBox.Width > t.PageWidth {
		return fmt.Errorf("照片框超出页面宽度")
	}
	if t.TextMarginX < 0 || t.TextMarginY < 0 {
		return fmt.Errorf("文字边距不能为负数")
	}
	if t.PageWidth-2*t.CaptionInset-t.TextMarginX <= 0 {
		return fmt.Errorf("说明文字区域宽度不足")
	}
	return nil
}

// ParseColor 解析 #rgb / #rrggbb / #rrggbbaa（忽略 alpha）。
func ParseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return hexColor(r, g, b)
	case 6, 8:
		return hexColor(value[0:2], value[2:4], value[4:6])
	default:
		return Color{}, fmt.Errorf("颜色值 #%s 无法解析", value)
	}
}

func hexColor(r, g, b string) (Color, error) {
	var out [3]int
	for i, s := range []string{r, g, b} {
		v, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("颜色分量 %q 无法解析: %w", s, err)
		}
		out[i] = int(v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}
