package subscription

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(service.New),
)
