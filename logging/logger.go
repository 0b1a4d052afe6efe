// Package logging 保存进程级的 *slog.Logger，缺省丢弃所有输出。
package logging

import (
	"io"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// SetLogger 设置进程级 logger；传入 nil 时恢复为丢弃输出。可并发调用。
func SetLogger(sl *slog.Logger) {
	if sl == nil {
		sl = slog.New(slog.DiscardHandler)
	}
	logger.Store(sl)
}

// Logger 返回当前 logger，从未设置时返回丢弃输出的 logger。
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	l := slog.New(slog.DiscardHandler)
	logger.CompareAndSwap(nil, l)
	return logger.Load()
}

// NewText 创建写往 w 的文本 logger，verbose 时输出 Debug 级别。
func NewText(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
