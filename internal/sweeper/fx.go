package sweeper

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
)

var Module = fx.Module("sweeper",
	fx.Provide(ProvideLocker),
	fx.Provide(New),
	fx.Invoke(RunSweeper),
)

// ProvideLocker builds the redis run-lock when REDIS_ADDR is set. The
// sweeper degrades to an in-process lock without it.
func ProvideLocker(lc fx.Lifecycle, cfg config.Config) *Locker {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewLocker(client)
}

func RunSweeper(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())

			go s.RunForever(runCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
