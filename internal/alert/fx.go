package alert

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(service.New),
)
