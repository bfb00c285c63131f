package organization

import (
	"github.com/smallbiznis/detailflow/internal/organization/repository"
	"github.com/smallbiznis/detailflow/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
