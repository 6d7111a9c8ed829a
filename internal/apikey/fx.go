package apikey

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(service.New),
)
