// Package caption 负责标题/说明文字的折行与位图化。
//
// 文字先按贪心策略折成若干行，再居中绘制到一张按文本块大小裁好的位图上，
// 由 PDF 组装阶段当作图片放置，因此 emoji 等字形不依赖 PDF 内嵌字体。
package caption

import (
	"image"
	"image/color"
	"strings"
)

// DefaultLineHeightFactor 是行高相对字号的倍数。
const DefaultLineHeightFactor = 1.4

// Measurer 返回字符串在给定字号下的渲染宽度（与 fontSize 同单位）。
type Measurer interface {
	MeasureText(text string, fontSize float64) float64
}

// Surface 是一块可绘制文字的位图。x/y 为行框左上角（像素）。
type Surface interface {
	DrawText(text string, x, y, fontSize float64, col color.Color)
	Image() image.Image
}

// Host 同时提供测量与绘制能力，通常由字体后端实现。
type Host interface {
	Measurer
	NewSurface(width, height int) (Surface, error)
}

// Block 是一次折行的结果。
type Block struct {
	Lines      []string `json:"lines"`
	LineHeight float64  `json:"lineHeight"`
}

// Height 返回文本块的总高度，不含边距。
func (b Block) Height() float64 {
	return float64(len(b.Lines)) * b.LineHeight
}

// Layout 使用贪心算法把 text 折成宽度不超过 maxWidth 的行。
// 空白会被折叠为单个空格；空输入得到一行空字符串。
// 单个超宽的词不会被拆开，而是独占一行并允许溢出。
func Layout(text string, fontSize, maxWidth float64, m Measurer) Block {
	return LayoutWithFactor(text, fontSize, maxWidth, DefaultLineHeightFactor, m)
}

// LayoutWithFactor 与 Layout 相同，但允许指定行高倍数。
func LayoutWithFactor(text string, fontSize, maxWidth, factor float64, m Measurer) Block {
	if factor <= 0 {
		factor = DefaultLineHeightFactor
	}
	block := Block{LineHeight: fontSize * factor}

	words := strings.Fields(text)
	if len(words) == 0 {
		block.Lines = []string{""}
		return block
	}

	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if m.MeasureText(candidate, fontSize) > maxWidth && current != "" {
			block.Lines = append(block.Lines, current)
			current = word
			continue
		}
		current = candidate
	}
	block.Lines = append(block.Lines, current)
	return block
}
