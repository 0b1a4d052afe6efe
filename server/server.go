// Package server 提供浏览器前端：上传照片、编辑说明与封面文字、调整顺序并导出 PDF。
// 每个浏览器通过 cookie 中的会话 id 对应 session.Registry 中的一份内存状态。
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ByLCY/keepsake/book"
	"github.com/ByLCY/keepsake/layout"
	"github.com/ByLCY/keepsake/logging"
	"github.com/ByLCY/keepsake/session"
)

const (
	cookieName            = "keepsake_session"
	defaultMaxUploadBytes = 10 << 20 // 10MB
	thumbnailEdge         = 480
)

// Exporter 把会话导出为 PDF，book.Exporter 是默认实现。
type Exporter interface {
	Export(ctx context.Context, s *session.Session) (*book.Export, error)
}

// Options 配置 HTTP 前端。
type Options struct {
	SessionSecret  string
	CookieSecure   bool
	MaxUploadBytes int64 // 单个文件上限
	MaxPhotoEdge   int
}

// Server 持有 echo 实例与会话表。
type Server struct {
	Echo *echo.Echo

	registry  *session.Registry
	exporter  Exporter
	maxUpload int64
	maxEdge   int
}

// New 创建并注册全部路由。
func New(registry *session.Registry, exporter Exporter, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	s := &Server{
		Echo:      echo.New(),
		registry:  registry,
		exporter:  exporter,
		maxUpload: opts.MaxUploadBytes,
		maxEdge:   opts.MaxPhotoEdge,
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = s.httpErrorHandler
	s.setupMiddleware(opts)
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.Echo
	e.GET("/", s.handleIndex)
	e.GET("/state", s.handleState)
	e.POST("/photos", s.handleUpload)
	e.GET("/photos/:index", s.handlePhoto)
	e.POST("/photos/:index/caption", s.handleCaption)
	e.DELETE("/photos/:index", s.handleRemove)
	e.POST("/photos/:index/delete", s.handleRemove)
	e.POST("/photos/:index/move", s.handleMove)
	e.POST("/meta", s.handleMeta)
	e.POST("/export", s.handleExport)
}

func (s *Server) setupMiddleware(opts Options) {
	e := s.Echo

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logging.Logger().Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(echosession.Middleware(newCookieStore(opts)))
}

func newCookieStore(opts Options) *sessions.CookieStore {
	secret := opts.SessionSecret
	if secret == "" {
		// 未配置时每次启动随机生成，重启后旧 cookie 失效
		secret = uuid.NewString() + uuid.NewString()
		logging.Logger().Warn("session secret not configured, using a random one")
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   opts.CookieSecure,
	}
	return store
}

// current 返回 cookie 对应的会话，不存在或已过期时新建并写回 cookie。
func (s *Server) current(c echo.Context) (*session.Session, error) {
	sess, err := echosession.Get(cookieName, c)
	if sess == nil {
		return nil, err
	}
	if err != nil {
		// cookie 无法解码（例如密钥变更）时 gorilla 仍会返回新的空会话
		logging.Logger().Debug("session cookie rejected", slog.Any("err", err))
	}
	id, _ := sess.Values["id"].(string)
	ss := s.registry.GetOrCreate(id)
	if ss.ID() != id {
		sess.Values["id"] = ss.ID()
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

// Start 监听 addr，阻塞直到服务关闭。
func (s *Server) Start(addr string) error {
	logging.Logger().Info("listening", slog.String("addr", addr))
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 在 timeout 内优雅关闭。
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Echo.Shutdown(ctx)
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he := toHTTPError(err); he != nil {
		err = he
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code >= 500 {
		logging.Logger().Error("server error", slog.String("uri", c.Request().RequestURI), slog.Any("err", err))
	}
	s.Echo.DefaultHTTPErrorHandler(err, c)
}

// toHTTPError 把领域错误映射为 HTTP 状态码。
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, layout.ErrNoPhotos):
		return echo.NewHTTPError(http.StatusBadRequest, layout.ErrNoPhotos.Error())
	case errors.Is(err, session.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, session.ErrBusy.Error())
	case errors.Is(err, session.ErrIndexOutOfRange):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return nil
	}
}
