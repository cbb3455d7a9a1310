package batch

import (
	"github.com/parsbill/parsbill/internal/batch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("batch.service",
	fx.Provide(service.New),
)
