package layout

import (
	"errors"
	"fmt"
)

// ErrDegenerateSize 表示原始尺寸或目标框存在非正数边长。
var ErrDegenerateSize = errors.New("layout: 尺寸必须大于 0")

// FitResult 描述图片在目标框内的绘制尺寸与水平居中偏移。
type FitResult struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	XOffset float64 `json:"xOffset"`
}

// Fit 在保持宽高比的前提下把 nativeW×nativeH 缩放进 boxW×boxH：
// 先按宽度铺满，高度超出时改为按高度铺满。结果不会超出目标框。
func Fit(nativeW, nativeH, boxW, boxH float64) (FitResult, error) {
	if !(nativeW > 0) || !(nativeH > 0) || !(boxW > 0) || !(boxH > 0) {
		return FitResult{}, fmt.Errorf("%w: native=%gx%g box=%gx%g", ErrDegenerateSize, nativeW, nativeH, boxW, boxH)
	}
	ratio := nativeW / nativeH

	w := boxW
	h := boxW / ratio
	if h > boxH {
		h = boxH
		w = boxH * ratio
		// 浮点误差可能让 w 略超出 boxW
		if w > boxW {
			w = boxW
		}
	}
	return FitResult{Width: w, Height: h, XOffset: (boxW - w) / 2}, nil
}

// Box 是页面坐标中的矩形区域（pt，左上角为原点）。
type Box struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Place 把 native 尺寸的内容放进 box：水平居中，垂直方向按 valign 对齐（top/center）。
func (b Box) Place(nativeW, nativeH float64, valign string) (Box, error) {
	fit, err := Fit(nativeW, nativeH, b.Width, b.Height)
	if err != nil {
		return Box{}, err
	}
	y := b.Y
	if valign == "center" {
		y += (b.Height - fit.Height) / 2
	}
	return Box{X: b.X + fit.XOffset, Y: y, Width: fit.Width, Height: fit.Height}, nil
}
