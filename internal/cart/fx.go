package cart

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/cart/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cart.service",
	fx.Provide(service.New),
)
