//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"mlops-service/internal/app"
	"mlops-service/internal/conf"
	"mlops-service/internal/data"
	"mlops-service/internal/metrics"
	"mlops-service/internal/server"
)

// initApp 初始化应用
func initApp(config *conf.Config, logger *zap.Logger) *app.App {
	wire.Build(
		provideDataConfig,
		provideDebug,

		// Data 层
		data.NewStore,

		// Metrics 层
		metrics.NewRecorder,

		// Server 层
		server.NewHTTPServer,

		// App
		app.NewApp,

		wire.Bind(new(server.Store), new(*data.Store)),
		wire.Bind(new(server.Recorder), new(*metrics.Recorder)),
		wire.Bind(new(server.Logger), new(*zap.Logger)),
	)

	return nil
}
