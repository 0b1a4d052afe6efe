package server

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// PageData 是首页的渲染数据。
type PageData struct {
	State   State
	Message string
}

const pageStyle = `body{font-family:sans-serif;background:#fff0f5;color:#3c3c3c;margin:0;padding:2rem}
h1{color:#dc143c}
.card{background:#fff;border:1px solid #ffb6c1;border-radius:8px;padding:1rem;margin:1rem 0}
.photos{display:grid;grid-template-columns:repeat(auto-fill,minmax(240px,1fr));gap:1rem}
.photo img{max-width:100%;border:2px solid #dc143c;border-radius:5px}
.warn{color:#dc143c;font-weight:bold}
textarea{width:100%}`

// Page 渲染编辑页：封面文字、上传、照片列表与导出按钮。
func Page(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		esc := html.EscapeString
		st := d.State

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Memory Book</title><style>`)
		b.WriteString(pageStyle)
		b.WriteString(`</style></head><body><h1>Memory Book</h1>`)
		if d.Message != "" {
			fmt.Fprintf(&b, `<p class="warn">%s</p>`, esc(d.Message))
		}

		fmt.Fprintf(&b, `<form class="card" method="post" action="/meta">
<label>Title <input name="title" value="%s"></label>
<label>From <input name="author" value="%s"></label>
<label>To <input name="recipient" value="%s"></label>
<button type="submit">Save</button></form>`, esc(st.Meta.Title), esc(st.Meta.Author), esc(st.Meta.Recipient))

		b.WriteString(`<form class="card" method="post" action="/photos" enctype="multipart/form-data">
<input type="file" name="photos" accept="image/*" multiple>
<label><input type="checkbox" name="mode" value="replace"> replace current photos</label>
<button type="submit">Upload</button></form>`)

		if len(st.Photos) == 0 {
			b.WriteString(`<p class="warn">Please upload at least one photo.</p>`)
		}
		b.WriteString(`<div class="photos">`)
		last := len(st.Photos) - 1
		for _, p := range st.Photos {
			fmt.Fprintf(&b, `<div class="card photo"><strong>#%d %s</strong>`, p.Index+1, esc(p.Name))
			if p.Error != "" {
				fmt.Fprintf(&b, `<p class="warn">%s</p>`, esc(p.Error))
			} else {
				fmt.Fprintf(&b, `<img src="/photos/%d" alt="%s">`, p.Index, esc(p.Name))
			}
			fmt.Fprintf(&b, `<form method="post" action="/photos/%d/caption"><textarea name="caption" rows="3">%s</textarea><button type="submit">Save caption</button></form>`,
				p.Index, esc(p.Caption))
			if p.Index > 0 {
				fmt.Fprintf(&b, `<form method="post" action="/photos/%d/move"><input type="hidden" name="to" value="%d"><button type="submit">&larr;</button></form>`, p.Index, p.Index-1)
			}
			if p.Index < last {
				fmt.Fprintf(&b, `<form method="post" action="/photos/%d/move"><input type="hidden" name="to" value="%d"><button type="submit">&rarr;</button></form>`, p.Index, p.Index+1)
			}
			fmt.Fprintf(&b, `<form method="post" action="/photos/%d/delete"><button type="submit">Remove</button></form></div>`, p.Index)
		}
		b.WriteString(`</div>`)

		disabled := ""
		if len(st.Photos) == 0 || st.Busy {
			disabled = " disabled"
		}
		label := "Download PDF"
		if st.Busy {
			label = "Generating PDF..."
		}
		fmt.Fprintf(&b, `<form method="post" action="/export"><button type="submit"%s>%s</button></form></body></html>`, disabled, label)

		_, err := io.WriteString(w, b.String())
		return err
	})
}
