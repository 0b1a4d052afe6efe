package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/ByLCY/keepsake/layout"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func samplePage(kind string) layout.Page {
	pink := layout.Color{R: 255, G: 182, B: 193}
	white := layout.Color{R: 255, G: 255, B: 255}
	return layout.Page{
		Kind:       kind,
		Width:      layout.A4Width,
		Height:     layout.A4Height,
		Background: &pink,
		Rects: []layout.Rect{
			{X: 56, Y: 80, Width: 480, Height: 360, FillColor: &white},
			{X: 40, Y: 500, Width: 515, Height: 80, Radius: 8, StrokeColor: &pink, StrokeWidth: 1},
		},
		Circles: []layout.Circle{{CX: 80, CY: 60, R: 15, FillColor: pink}},
		Lines:   []layout.Line{{X1: 100, Y1: 300, X2: 495, Y2: 300, Color: pink, Width: 2}},
		Images: []layout.ImageBox{
			{Source: "photo:a.png", X: 64, Y: 88, Width: 464, Height: 232, Image: solid(200, 100, color.NRGBA{R: 10, G: 20, B: 30, A: 255})},
		},
		Borders: []layout.Rect{{X: 56, Y: 80, Width: 480, Height: 360, StrokeColor: &pink, StrokeWidth: 1}},
		Texts:   []layout.TextBox{{Content: "1", X: 297, Y: 811, FontSize: 10, Color: layout.Color{R: 150, G: 150, B: 150}, Align: "center"}},
	}
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	require.NoError(t, api.Validate(bytes.NewReader(data), conf))
	n, err := api.PageCount(bytes.NewReader(data), conf)
	require.NoError(t, err)
	return n
}

func TestRenderOnePDFPagePerLayoutPage(t *testing.T) {
	res := &layout.Result{
		Pages: []layout.Page{samplePage("cover"), samplePage("photo"), samplePage("photo")},
		Meta:  layout.DocumentMeta{Title: "Our Memories", Author: "Me", Creator: "keepsake", Keywords: []string{"memory book"}},
	}
	data, err := NewRenderer().Render(res)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, 3, pageCount(t, data))
}

func TestRenderWithCustomFont(t *testing.T) {
	res := &layout.Result{Pages: []layout.Page{samplePage("cover")}}
	data, err := NewRendererWithOptions(Options{FontData: gobold.TTF}).Render(res)
	require.NoError(t, err)
	assert.Equal(t, 1, pageCount(t, data))
}

func TestRenderRejectsInvalidInput(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render(nil)
	assert.Error(t, err)

	_, err = r.Render(&layout.Result{})
	assert.Error(t, err)

	_, err = r.Render(&layout.Result{Pages: []layout.Page{{Width: 0, Height: 100}}})
	assert.Error(t, err)

	bad := samplePage("photo")
	bad.Images[0].Image = nil
	_, err = r.Render(&layout.Result{Pages: []layout.Page{bad}})
	assert.Error(t, err)

	_, err = NewRendererWithOptions(Options{FontData: []byte("not a font")}).Render(&layout.Result{Pages: []layout.Page{samplePage("cover")}})
	assert.Error(t, err)
}
