package session

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// DefaultMaxPhotoEdge 是嵌入 PDF 前照片长边的上限（像素）。
const DefaultMaxPhotoEdge = 2000

// ErrEmptyImage 表示照片解码成功但宽或高为零。
var ErrEmptyImage = errors.New("照片尺寸为零")

// Photo 是一张上传的照片。解码失败不会报错返回，而是记录在 Err 中，
// 导出时该页会以占位框代替。
type Photo struct {
	Name   string
	Data   []byte
	Format string
	Image  image.Image
	Width  int
	Height int
	Err    error
}

// OK 报告照片是否可以排版。
func (p *Photo) OK() bool {
	return p != nil && p.Err == nil && p.Image != nil && p.Width > 0 && p.Height > 0
}

// DecodePhoto 解码照片并按 EXIF 方向校正，长边超过 maxEdge 时等比缩小。
// maxEdge <= 0 时不缩放。
func DecodePhoto(name string, data []byte, maxEdge int) *Photo {
	p := &Photo{Name: name, Data: data}
	if len(data) == 0 {
		p.Err = fmt.Errorf("decode %s: 文件为空", name)
		return p
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		p.Format = format
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		p.Err = fmt.Errorf("decode %s: %w", name, err)
		return p
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		p.Err = fmt.Errorf("decode %s: %w", name, ErrEmptyImage)
		return p
	}
	p.Image = downscale(img, maxEdge)
	p.Width = p.Image.Bounds().Dx()
	p.Height = p.Image.Bounds().Dy()
	return p
}

// downscale 把长边缩到 maxEdge 以内，短边至少保留 1 像素。
func downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}
	nw, nh := maxEdge, h*maxEdge/w
	if h > w {
		nw, nh = w*maxEdge/h, maxEdge
	}
	nw, nh = max(nw, 1), max(nh, 1)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Thumbnail 返回长边不超过 edge 的预览图。
func (p *Photo) Thumbnail(edge int) (image.Image, error) {
	if !p.OK() {
		if p != nil && p.Err != nil {
			return nil, p.Err
		}
		return nil, ErrEmptyImage
	}
	return imaging.Fit(p.Image, edge, edge, imaging.Lanczos), nil
}
