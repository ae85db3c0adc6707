package app

import (
	"context"

	"go.uber.org/zap"

	"mlops-service/internal/data"
	"mlops-service/internal/server"
)

// App 应用程序
type App struct {
	Logger     *zap.Logger
	HTTPServer *server.HTTPServer
	Store      *data.Store
}

// NewApp 创建应用程序
func NewApp(logger *zap.Logger, httpServer *server.HTTPServer, store *data.Store) *App {
	return &App{
		Logger:     logger,
		HTTPServer: httpServer,
		Store:      store,
	}
}

// Startup 启动前的存储初始化：幂等建表加一次重建钩子
//
// 两步的结果都只记日志，失败不阻止服务启动，也不影响任何端点的可用性。
func (a *App) Startup(ctx context.Context) {
	a.Store.EnsureSchema(ctx)
	a.rebuildFromDatabase(ctx)
}

// rebuildFromDatabase 启动时的重建钩子
//
// 只做一次连通性探测并记日志，不会把历史行回放进内存聚合：聚合状态
// 在每次重启后从零开始。
func (a *App) rebuildFromDatabase(ctx context.Context) {
	a.Logger.Info("Rebuilding Prometheus metrics from database...")

	if a.Store.Probe(ctx) {
		a.Logger.Info("Successfully rebuilt Prometheus metrics from database")
	} else {
		a.Logger.Warn("Could not rebuild metrics from database, starting fresh")
	}
}
