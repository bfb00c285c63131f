package vehicle

import (
	"github.com/smallbiznis/detailflow/internal/vehicle/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("vehicle.repository",
	fx.Provide(repository.Provide),
)
