// Package config 读取 YAML 配置文件。所有字段均可省略，缺省值取自 layout.DefaultTheme。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/keepsake/book"
	"github.com/ByLCY/keepsake/fonts"
	"github.com/ByLCY/keepsake/layout"
	"github.com/ByLCY/keepsake/session"
)

// Config 是 keepsake 的完整配置。
type Config struct {
	Output       string `yaml:"output"`         // 导出文件名
	Font         string `yaml:"font"`           // builtin:go-regular 或 TTF/OTF 路径（相对配置文件）
	MaxPhotoEdge int    `yaml:"max_photo_edge"` // 嵌入前照片长边上限（像素）
	DebugLayout  string `yaml:"debug_layout"`   // 非空时写出布局 JSON

	Page    PageConfig   `yaml:"page"`
	Text    TextConfig   `yaml:"text"`
	Colors  ColorConfig  `yaml:"colors"`
	Strings StringConfig `yaml:"strings"`
	Server  ServerConfig `yaml:"server"`

	dir string
}

// PageConfig 描述纸张尺寸，长度可带单位（mm/cm/in/pt/px），缺省为 A4。
type PageConfig struct {
	Width  string `yaml:"width"`
	Height string `yaml:"height"`
}

// TextConfig 描述字号（逻辑像素）与位图化参数。
type TextConfig struct {
	TitleSize      float64 `yaml:"title_size"`
	NameSize       float64 `yaml:"name_size"`
	CaptionSize    float64 `yaml:"caption_size"`
	PageNumberSize float64 `yaml:"page_number_size"`
	LineHeight     float64 `yaml:"line_height"` // 行高倍数，1.4~1.6
	Oversample     float64 `yaml:"oversample"`  // 位图过采样倍数，1~4
}

// ColorConfig 使用 #rrggbb 形式的颜色。
type ColorConfig struct {
	CoverBackground string `yaml:"cover_background"`
	PhotoBackground string `yaml:"photo_background"`
	Accent          string `yaml:"accent"`
	HeaderDots      string `yaml:"header_dots"`
	Blush           string `yaml:"blush"`
	Paper           string `yaml:"paper"`
	Shadow          string `yaml:"shadow"`
	Text            string `yaml:"text"`
	PageNumber      string `yaml:"page_number"`
}

// StringConfig 是缺省文案与模板，模板可使用 ${title}、${author}、${recipient}、${page}、${name}。
type StringConfig struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Recipient   string `yaml:"recipient"`
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	PageLabel   string `yaml:"page_label"`
	Unavailable string `yaml:"unavailable"`
}

// ServerConfig 配置 HTTP 前端。
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	MaxUploadMB   int           `yaml:"max_upload_mb"`
}

// Default 返回全部使用缺省值的配置。
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Load 读取 path 指定的 YAML 文件；path 为空时返回缺省配置。
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Parse 解析 YAML 内容并校验。
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) setDefaults() {
	t := layout.DefaultTheme()
	if c.Output == "" {
		c.Output = book.DefaultFilename
	}
	if c.Font == "" {
		c.Font = fonts.Default
	}
	if c.MaxPhotoEdge == 0 {
		c.MaxPhotoEdge = session.DefaultMaxPhotoEdge
	}

	if c.Page.Width == "" {
		c.Page.Width = fmt.Sprintf("%gpt", t.PageWidth)
	}
	if c.Page.Height == "" {
		c.Page.Height = fmt.Sprintf("%gpt", t.PageHeight)
	}

	setFloat(&c.Text.TitleSize, t.TitleFontSize)
	setFloat(&c.Text.NameSize, t.NameFontSize)
	setFloat(&c.Text.CaptionSize, t.CaptionFontSize)
	setFloat(&c.Text.PageNumberSize, t.PageNumberFontSize)
	setFloat(&c.Text.LineHeight, t.LineHeightFactor)
	setFloat(&c.Text.Oversample, t.Oversample)

	p := t.Colors
	setString(&c.Colors.CoverBackground, hex(p.CoverBackground))
	setString(&c.Colors.PhotoBackground, hex(p.PhotoBackground))
	setString(&c.Colors.Accent, hex(p.Accent))
	setString(&c.Colors.HeaderDots, hex(p.HeaderDots))
	setString(&c.Colors.Blush, hex(p.Blush))
	setString(&c.Colors.Paper, hex(p.Paper))
	setString(&c.Colors.Shadow, hex(p.Shadow))
	setString(&c.Colors.Text, hex(p.Text))
	setString(&c.Colors.PageNumber, hex(p.PageNumber))

	s := t.Strings
	setString(&c.Strings.Title, s.Title)
	setString(&c.Strings.Author, s.Author)
	setString(&c.Strings.Recipient, s.Recipient)
	setString(&c.Strings.From, s.From)
	setString(&c.Strings.To, s.To)
	setString(&c.Strings.PageLabel, s.PageLabel)
	setString(&c.Strings.Unavailable, s.Unavailable)

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = session.DefaultIdleTTL
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 10
	}
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Output, `/\`) {
		return fmt.Errorf("output 只能是文件名，不能包含路径：%q", c.Output)
	}
	if c.MaxPhotoEdge < 0 {
		return fmt.Errorf("max_photo_edge 不能为负数")
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb 不能为负数")
	}
	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("server.session_ttl 不能为负数")
	}
	if _, err := c.Theme(); err != nil {
		return err
	}
	return nil
}

// Theme 把配置转换为排版版式，并校验版式本身。
func (c *Config) Theme() (layout.Theme, error) {
	t := layout.DefaultTheme()

	w, err := layout.ParseLength(c.Page.Width)
	if err != nil {
		return t, fmt.Errorf("page.width: %w", err)
	}
	h, err := layout.ParseLength(c.Page.Height)
	if err != nil {
		return t, fmt.Errorf("page.height: %w", err)
	}
	if w.ToPT() <= 0 || h.ToPT() <= 0 {
		return t, fmt.Errorf("纸张尺寸 %s x %s 无效", w, h)
	}
	// 纸张宽度变化时照片框随之平移，保持水平居中
	t.PhotoBox.X += (w.ToPT() - t.PageWidth) / 2
	t.PageWidth, t.PageHeight = w.ToPT(), h.ToPT()

	t.TitleFontSize = c.Text.TitleSize
	t.NameFontSize = c.Text.NameSize
	t.CaptionFontSize = c.Text.CaptionSize
	t.PageNumberFontSize = c.Text.PageNumberSize
	t.LineHeightFactor = c.Text.LineHeight
	t.Oversample = c.Text.Oversample

	for _, f := range []struct {
		name string
		src  string
		dst  *layout.Color
	}{
		{"cover_background", c.Colors.CoverBackground, &t.Colors.CoverBackground},
		{"photo_background", c.Colors.PhotoBackground, &t.Colors.PhotoBackground},
		{"accent", c.Colors.Accent, &t.Colors.Accent},
		{"header_dots", c.Colors.HeaderDots, &t.Colors.HeaderDots},
		{"blush", c.Colors.Blush, &t.Colors.Blush},
		{"paper", c.Colors.Paper, &t.Colors.Paper},
		{"shadow", c.Colors.Shadow, &t.Colors.Shadow},
		{"text", c.Colors.Text, &t.Colors.Text},
		{"page_number", c.Colors.PageNumber, &t.Colors.PageNumber},
	} {
		col, err := layout.ParseColor(f.src)
		if err != nil {
			return t, fmt.Errorf("colors.%s: %w", f.name, err)
		}
		*f.dst = col
	}

	t.Strings = layout.Strings{
		Title:       c.Strings.Title,
		Author:      c.Strings.Author,
		Recipient:   c.Strings.Recipient,
		From:        c.Strings.From,
		To:          c.Strings.To,
		PageLabel:   c.Strings.PageLabel,
		Unavailable: c.Strings.Unavailable,
	}

	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// FontData 读取配置的字体，相对路径以配置文件所在目录为根。
func (c *Config) FontData() ([]byte, error) {
	return fonts.Load(c.Font, c.dir)
}

// MaxUploadBytes 返回单个上传文件的字节上限。
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// ExportOptions 组装导出器所需的参数。
func (c *Config) ExportOptions() (book.Options, error) {
	theme, err := c.Theme()
	if err != nil {
		return book.Options{}, err
	}
	data, err := c.FontData()
	if err != nil {
		return book.Options{}, err
	}
	return book.Options{
		Theme:     theme,
		FontData:  data,
		Filename:  c.Output,
		DebugPath: c.DebugLayout,
	}, nil
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if strings.TrimSpace(*v) == "" {
		*v = def
	}
}

func hex(c layout.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
