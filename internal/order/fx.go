package order

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/order/repository"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
