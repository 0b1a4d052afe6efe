package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ByLCY/keepsake/book"
	"github.com/ByLCY/keepsake/config"
	"github.com/ByLCY/keepsake/dsl"
	"github.com/ByLCY/keepsake/logging"
	"github.com/ByLCY/keepsake/server"
	"github.com/ByLCY/keepsake/session"
)

func main() {
	input := flag.String("in", "", "纪念册清单文件路径")
	output := flag.String("out", "", "PDF 输出路径，缺省为配置中的文件名")
	configPath := flag.String("config", "", "YAML 配置文件路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	serve := flag.String("serve", "", "以 HTTP 前端方式运行并监听该地址，例如 :8080")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	logging.SetLogger(logging.NewText(os.Stderr, *verbose))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *debug != "" {
		cfg.DebugLayout = *debug
	}
	opts, err := cfg.ExportOptions()
	if err != nil {
		log.Fatalf("配置无效: %v", err)
	}
	opts.DebugPerSession = *serve != ""
	exporter, err := book.New(opts)
	if err != nil {
		log.Fatalf("初始化导出器失败: %v", err)
	}
	defer exporter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve != "" {
		if err := runServer(ctx, *serve, cfg, exporter); err != nil {
			log.Fatalf("服务异常退出: %v", err)
		}
		return
	}

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	out := *output
	if out == "" {
		out = cfg.Output
	}
	res, err := run(ctx, *input, out, cfg.MaxPhotoEdge, exporter)
	if err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "跳过 %v\n", f)
	}
	fmt.Printf("已生成 PDF：%s（%d 页）\n", out, res.Pages)
}

// run 串联解析清单、解码照片、排版与渲染，并把 PDF 写到 outputPath。
func run(ctx context.Context, inputPath, outputPath string, maxEdge int, exporter *book.Exporter) (*book.Export, error) {
	doc, err := dsl.ParseFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("解析清单失败: %w", err)
	}

	s := session.New(filepath.Base(inputPath))
	for _, p := range doc.Photos() {
		path := p.Resolve(doc.BaseDir)
		var photo *session.Photo
		data, err := os.ReadFile(path)
		if err != nil {
			// 读取失败与解码失败一样按单张照片处理
			photo = &session.Photo{Name: string(p.Path), Err: err}
		} else {
			photo = session.DecodePhoto(string(p.Path), data, maxEdge)
		}
		if err := s.Add(photo); err != nil {
			return nil, err
		}
		if err := s.SetCaption(s.Len()-1, p.Text()); err != nil {
			return nil, err
		}
	}
	if err := s.SetMeta(doc.Meta()); err != nil {
		return nil, err
	}

	res, err := exporter.Export(ctx, s)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, res.PDF, 0o644); err != nil {
		return nil, fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return res, nil
}

func runServer(ctx context.Context, addr string, cfg *config.Config, exporter *book.Exporter) error {
	registry := session.NewRegistry(cfg.Server.SessionTTL)
	stopSweeper := registry.StartSweeper(time.Minute)
	defer stopSweeper()

	srv := server.New(registry, exporter, server.Options{
		SessionSecret:  cfg.Server.SessionSecret,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		MaxPhotoEdge:   cfg.MaxPhotoEdge,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logging.Logger().Info("shutting down", slog.String("addr", addr))
		if err := srv.Shutdown(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
