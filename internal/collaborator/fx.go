package collaborator

import (
	"github.com/parsbill/parsbill/internal/collaborator/repository"
	"github.com/parsbill/parsbill/internal/collaborator/service"
	"go.uber.org/fx"
)

var Module = fx.Module("collaborator.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
