package invoice

import (
	"github.com/parsbill/parsbill/internal/invoice/repository"
	"github.com/parsbill/parsbill/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
