package representative

import (
	"github.com/parsbill/parsbill/internal/representative/repository"
	"github.com/parsbill/parsbill/internal/representative/service"
	"go.uber.org/fx"
)

var Module = fx.Module("representative.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
