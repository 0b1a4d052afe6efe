package layout

import (
	"fmt"
	"image"
	"image/color"
)

// 该文件定义布局结果，供布局计算、渲染与调试 JSON 共用。
// 所有坐标单位均为 pt，原点在页面左上角。

// Result 保存布局后的页面、元信息与逐张照片的失败记录。
type Result struct {
	Pages    []Page       `json:"pages"`
	Meta     DocumentMeta `json:"meta"`
	Failures []Failure    `json:"failures,omitempty"`
}

// Failure 记录一张无法排版的照片；该页会以占位框代替，导出继续进行。
type Failure struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("照片 #%d (%s): %s", f.Index+1, f.Name, f.Reason)
}

func (f Failure) Unwrap() error { return f.Err }

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// RGBA 转换为不透明的 color.RGBA。
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 255}
}

// Page 记录页面尺寸与可以直接渲染的元素。
// 渲染顺序：背景 → Rects → Circles → Lines → Images → Borders → Texts。
type Page struct {
	Kind       string     `json:"kind"` // cover / photo
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Background *Color     `json:"background,omitempty"`
	Rects      []Rect     `json:"rects,omitempty"`
	Circles    []Circle   `json:"circles,omitempty"`
	Lines      []Line     `json:"lines,omitempty"`
	Images     []ImageBox `json:"images,omitempty"`
	Borders    []Rect     `json:"borders,omitempty"` // 覆盖在图片之上的描边
	Texts      []TextBox  `json:"texts,omitempty"`
}

// Rect 表示一个矩形，Radius > 0 时为圆角矩形。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Radius      float64 `json:"radius,omitempty"`
	FillColor   *Color  `json:"fillColor,omitempty"`   // 为空表示不填充
	StrokeColor *Color  `json:"strokeColor,omitempty"` // 为空表示不描边
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Circle 表示一个实心圆。
type Circle struct {
	CX        float64 `json:"cx"`
	CY        float64 `json:"cy"`
	R         float64 `json:"r"`
	FillColor Color   `json:"fillColor"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// ImageBox 描述位图的位置与绘制尺寸；尺寸已按原图比例计算，渲染器不得拉伸。
type ImageBox struct {
	Source string      `json:"source"` // 调试用：photo:<name> 或 text:<内容>
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Image  image.Image `json:"-"`
}

// TextBox 是由 PDF 字体直接绘制的短文本（如页码），Y 为基线。
type TextBox struct {
	Content  string  `json:"content"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"`
	Color    Color   `json:"color"`
	Align    string  `json:"align,omitempty"` // left/center/right，默认 left
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
