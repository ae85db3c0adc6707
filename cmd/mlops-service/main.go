package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"mlops-service/internal/conf"
	"mlops-service/internal/data"
)

var configFile = flag.String("config", "", "配置文件路径")

func main() {
	flag.Parse()

	// 加载配置
	config, err := conf.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger, err := initLogger(config.Observability)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting MLOps Service",
		zap.String("version", config.Observability.ServiceVersion),
		zap.String("environment", config.Observability.Environment),
		zap.Bool("database_configured", config.Database.URL != ""),
		zap.Bool("database_enabled", config.Database.Enabled),
	)

	// 初始化应用（通过 Wire 生成）
	app := initApp(config, logger)

	// 存储初始化与重建钩子，结果只记日志
	app.Startup(context.Background())

	// 启动 HTTP 服务器
	httpAddr := fmt.Sprintf(":%d", config.Server.HTTPPort)
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      app.HTTPServer.Engine(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", httpAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(cfg conf.ObservabilityConfig) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.LogFormat == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// 设置日志级别
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	// 添加字段
	zapConfig.InitialFields = map[string]interface{}{
		"service":     cfg.ServiceName,
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
	}

	return zapConfig.Build()
}

// provideDataConfig 从应用配置取数据库配置
func provideDataConfig(config *conf.Config) data.Config {
	return data.Config{
		URL:     config.Database.URL,
		Enabled: config.Database.Enabled,
	}
}

// provideDebug 调试开关
func provideDebug(config *conf.Config) bool {
	return config.Server.Debug
}
