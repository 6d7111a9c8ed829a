package observability

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability/logger"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability/metrics"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		provideTracingConfig,
		logger.New,
		metrics.New,
	),
	fx.Invoke(tracing.NewProvider),
)

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: true,
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:       cfg.OtelEnabled,
		ServiceName:   cfg.ServiceName,
		Environment:   cfg.Environment,
		Version:       cfg.Version,
		Endpoint:      cfg.OtelExporterEndpoint,
		Protocol:      cfg.OtelExporterProtocol,
		SamplingRatio: cfg.OtelSamplingRatio,
	}
}
