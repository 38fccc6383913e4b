package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jianglinzhang/Z2API/internal/app"
	"github.com/jianglinzhang/Z2API/pkg/logger"
)

var (
	configPath = flag.String("config", "config.yaml", "配置文件路径")
	version    = flag.Bool("version", false, "显示版本信息")
)

const appVersion = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Z2API v%s\n", appVersion)
		return
	}

	application, err := app.NewApplication(*configPath)
	if err != nil {
		logger.Error("应用初始化失败: %v", err)
		os.Exit(1)
	}

	// 服务器在独立goroutine中运行，主goroutine等待退出信号
	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("收到信号 %v，开始优雅关闭", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("服务器异常退出: %v", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Stop(ctx); err != nil {
		logger.Error("关闭失败: %v", err)
		os.Exit(1)
	}
	logger.Info("服务已退出")
}
