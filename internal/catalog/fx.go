package catalog

import (
	"github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/repository"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
