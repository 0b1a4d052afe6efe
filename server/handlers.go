package server

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/ByLCY/keepsake/layout"
	"github.com/ByLCY/keepsake/logging"
	"github.com/ByLCY/keepsake/session"
)

// State 是会话的 JSON 视图。
type State struct {
	Meta   layout.BookMeta `json:"meta"`
	Photos []PhotoState    `json:"photos"`
	Busy   bool            `json:"busy"`
}

// PhotoState 描述一张照片。
type PhotoState struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Caption string `json:"caption"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Error   string `json:"error,omitempty"`
}

func stateOf(s *session.Session) State {
	st := State{Meta: s.Meta(), Busy: s.Busy(), Photos: []PhotoState{}}
	for i, e := range s.Entries() {
		ps := PhotoState{Index: i, Name: e.Photo.Name, Caption: e.Caption, Width: e.Photo.Width, Height: e.Photo.Height}
		if e.Photo.Err != nil {
			ps.Error = e.Photo.Err.Error()
		}
		st.Photos = append(st.Photos, ps)
	}
	return st
}

// respond 对 JSON 客户端返回状态，对浏览器表单重定向回首页。
func respond(c echo.Context, s *session.Session, msg string) error {
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, stateOf(s))
	}
	target := "/"
	if msg != "" {
		target += "?msg=" + url.QueryEscape(msg)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func indexParam(c echo.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "照片序号无效")
	}
	return i, nil
}

func (s *Server) handleIndex(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	return Render(c, Page(PageData{State: stateOf(ss), Message: c.QueryParam("msg")}))
}

func (s *Server) handleState(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stateOf(ss))
}

// handleUpload 接收 multipart 字段 photos（可多个）；mode=replace 时替换现有照片并清空说明。
func (s *Server) handleUpload(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "无法解析上传内容")
	}
	files := form.File["photos"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "没有选择照片")
	}

	photos := make([]*session.Photo, 0, len(files))
	for _, fh := range files {
		if fh.Size > s.maxUpload {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("%s 超过大小上限（%d MB）", fh.Filename, s.maxUpload>>20))
		}
		data, err := readUpload(fh)
		if err != nil {
			return err
		}
		p := session.DecodePhoto(fh.Filename, data, s.maxEdge)
		if p.Err != nil {
			logging.Logger().Warn("photo decode failed", slog.String("name", fh.Filename), slog.Any("err", p.Err))
		}
		photos = append(photos, p)
	}

	if c.FormValue("mode") == "replace" {
		err = ss.Replace(photos...)
	} else {
		err = ss.Add(photos...)
	}
	if err != nil {
		return err
	}
	return respond(c, ss, "")
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handlePhoto 返回照片的 JPEG 预览图。
func (s *Server) handlePhoto(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	e, err := ss.Entry(i)
	if err != nil {
		return err
	}
	thumb, err := e.Photo.Thumbnail(thumbnailEdge)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentType, "image/jpeg")
	c.Response().Header().Set("Cache-Control", "no-store")
	c.Response().WriteHeader(http.StatusOK)
	return imaging.Encode(c.Response(), thumb, imaging.JPEG, imaging.JPEGQuality(85))
}

func (s *Server) handleCaption(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	if err := ss.SetCaption(i, c.FormValue("caption")); err != nil {
		return err
	}
	return respond(c, ss, "")
}

func (s *Server) handleRemove(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	if err := ss.Remove(i); err != nil {
		return err
	}
	return respond(c, ss, "")
}

func (s *Server) handleMove(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	from, err := indexParam(c)
	if err != nil {
		return err
	}
	to, err := strconv.Atoi(c.FormValue("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "目标位置无效")
	}
	if err := ss.Move(from, to); err != nil {
		return err
	}
	return respond(c, ss, "")
}

func (s *Server) handleMeta(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	meta := layout.BookMeta{
		Title:     c.FormValue("title"),
		Author:    c.FormValue("author"),
		Recipient: c.FormValue("recipient"),
	}
	if err := ss.SetMeta(meta); err != nil {
		return err
	}
	return respond(c, ss, "")
}

// handleExport 生成 PDF 并以附件形式下载；失败的照片数量与名称放在响应头中。
func (s *Server) handleExport(c echo.Context) error {
	ss, err := s.current(c)
	if err != nil {
		return err
	}
	out, err := s.exporter.Export(c.Request().Context(), ss)
	if err != nil {
		return err
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", out.Filename))
	h.Set("X-Keepsake-Pages", strconv.Itoa(out.Pages))
	h.Set("X-Keepsake-Failures", strconv.Itoa(len(out.Failures)))
	if len(out.Failures) > 0 {
		names := make([]string, len(out.Failures))
		for i, f := range out.Failures {
			names[i] = url.QueryEscape(f.Name)
		}
		h.Set("X-Keepsake-Failed-Photos", strings.Join(names, ","))
	}
	return c.Blob(http.StatusOK, "application/pdf", out.PDF)
}
