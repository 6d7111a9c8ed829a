package entitlement

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/repository"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.grantor",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
