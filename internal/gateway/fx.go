package gateway

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/gateway/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway.adapter",
	fx.Provide(service.New),
)
