package migration

import (
	batchdomain "github.com/parsbill/parsbill/internal/batch/domain"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	commissiondomain "github.com/parsbill/parsbill/internal/commission/domain"
	"github.com/parsbill/parsbill/internal/config"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if !cfg.RunMigrations {
			return nil
		}

		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Versioned SQL migrations target postgres; other dialects get the
		// schema straight from the models.
		return conn.AutoMigrate(
			&representativedomain.Representative{},
			&collaboratordomain.Collaborator{},
			&collaboratordomain.Payout{},
			&ledgerdomain.Entry{},
			&ledgerdomain.Head{},
			&commissiondomain.Record{},
			&invoicedomain.Invoice{},
			&invoicedomain.Item{},
			&invoicedomain.Payment{},
			&batchdomain.Batch{},
		)
	}),
)
