// Package book 把会话中的照片与文字导出为纪念册 PDF：
// 进入忙碌状态 → 快照 → 排版 → 渲染 → 返回字节与失败报告。
package book

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ByLCY/keepsake/caption"
	"github.com/ByLCY/keepsake/fonts"
	"github.com/ByLCY/keepsake/layout"
	"github.com/ByLCY/keepsake/logging"
	"github.com/ByLCY/keepsake/renderer"
	canvasrenderer "github.com/ByLCY/keepsake/renderer/canvas"
	"github.com/ByLCY/keepsake/session"
)

// DefaultFilename 是导出文件的缺省名称。
const DefaultFilename = "Valentine_Memory_Book.pdf"

// Export 是一次导出的结果。Failures 非空时 PDF 仍然完整，只是对应页为占位框。
type Export struct {
	PDF      []byte
	Filename string
	Pages    int
	Failures []layout.Failure
}

// Options 配置导出器。
type Options struct {
	Theme    layout.Theme
	FontData []byte // 说明文字与页码使用的字体，为空时使用内置 Go 字体
	Filename string
	// DebugPath 非空时把每次的布局结果写成 JSON，便于排查版式问题。
	DebugPath string
	// DebugPerSession 为 true 时在文件名中加入会话 id，多个会话并发导出时互不覆盖。
	DebugPerSession bool
}

// Exporter 串联排版与渲染，可被多个会话并发使用。
type Exporter struct {
	theme      layout.Theme
	typesetter layout.Typesetter
	renderer   renderer.Renderer
	filename   string
	debugPath  string
	perSession bool
	closer     func() error
}

// New 使用 OpenType 文字后端与 canvas 渲染器创建导出器。
func New(opts Options) (*Exporter, error) {
	if err := opts.Theme.Validate(); err != nil {
		return nil, fmt.Errorf("版式无效: %w", err)
	}
	fontData := opts.FontData
	if len(fontData) == 0 {
		data, err := fonts.Load(fonts.Default, "")
		if err != nil {
			return nil, err
		}
		fontData = data
	}
	host, err := caption.NewOpenTypeHost(fontData)
	if err != nil {
		return nil, err
	}
	e := NewWith(opts, caption.Engine{Host: host}, canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{FontData: fontData}))
	e.closer = host.Close
	return e, nil
}

// NewWith 使用给定的排版器与渲染器创建导出器，测试中可注入桩实现。
func NewWith(opts Options, ts layout.Typesetter, r renderer.Renderer) *Exporter {
	filename := opts.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	return &Exporter{
		theme:      opts.Theme,
		typesetter: ts,
		renderer:   r,
		filename:   filename,
		debugPath:  opts.DebugPath,
		perSession: opts.DebugPerSession,
	}
}

// Filename 返回导出文件名。
func (e *Exporter) Filename() string { return e.filename }

// Close 释放字体资源。
func (e *Exporter) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

// debugFile 返回本次导出的调试文件路径，未开启时为空。
func (e *Exporter) debugFile(sessionID string) string {
	if e.debugPath == "" || !e.perSession {
		return e.debugPath
	}
	ext := filepath.Ext(e.debugPath)
	return strings.TrimSuffix(e.debugPath, ext) + "-" + sessionID + ext
}

// Export 导出会话。会话为空返回 layout.ErrNoPhotos，正在导出返回 session.ErrBusy；
// 导出期间会话拒绝修改，返回前恢复。
func (e *Exporter) Export(ctx context.Context, s *session.Session) (*Export, error) {
	book, done, err := s.BeginExport()
	if err != nil {
		return nil, err
	}
	defer done()

	log := logging.Logger().With(slog.String("session", s.ID()))
	start := time.Now()

	res, err := layout.Build(ctx, book, layout.BuildOptions{Typesetter: e.typesetter, Theme: e.theme})
	if err != nil {
		return nil, fmt.Errorf("排版失败: %w", err)
	}
	if path := e.debugFile(s.ID()); path != "" {
		if err := layout.WriteDebugJSON(res, path); err != nil {
			log.Warn("write layout debug failed", slog.String("path", path), slog.Any("err", err))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf, err := e.renderer.Render(res)
	if err != nil {
		return nil, fmt.Errorf("渲染 PDF 失败: %w", err)
	}

	e.warnMissingGlyphs(log, book)
	for _, f := range res.Failures {
		log.Warn("photo skipped", slog.Int("index", f.Index), slog.String("name", f.Name), slog.String("reason", f.Reason))
	}
	log.Info("book exported",
		slog.Int("pages", len(res.Pages)),
		slog.Int("failures", len(res.Failures)),
		slog.Int("bytes", len(pdf)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Export{
		PDF:      pdf,
		Filename: e.filename,
		Pages:    len(res.Pages),
		Failures: res.Failures,
	}, nil
}

// warnMissingGlyphs 记录当前字体画不出的字符，例如内置 Go 字体中的 emoji。
func (e *Exporter) warnMissingGlyphs(log *slog.Logger, book layout.Book) {
	g, ok := e.typesetter.(interface{ MissingGlyphs(string) []rune })
	if !ok {
		return
	}
	texts := []string{book.Meta.Title, book.Meta.Author, book.Meta.Recipient}
	for _, p := range book.Photos {
		texts = append(texts, p.Caption)
	}
	if missing := g.MissingGlyphs(strings.Join(texts, " ")); len(missing) > 0 {
		log.Warn("font lacks glyphs, configure an emoji-capable font", slog.String("chars", string(missing)))
	}
}
