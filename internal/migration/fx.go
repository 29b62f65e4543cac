package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	analyticsdomain "github.com/tastelanc/backoffice/internal/analytics/domain"
	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	billingdomain "github.com/tastelanc/backoffice/internal/billing/domain"
	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
	"github.com/tastelanc/backoffice/internal/config"
	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	"github.com/tastelanc/backoffice/internal/seed"
	"github.com/tastelanc/backoffice/pkg/db"
)

// Models are the tables created by AutoMigrate when not running on postgres.
func Models() []any {
	return []any{
		&authdomain.User{},
		&restaurantdomain.Restaurant{},
		&restaurantdomain.TierChange{},
		&leaddomain.Lead{},
		&commissiondomain.Entry{},
		&payrolldomain.Batch{},
		&payrolldomain.Line{},
		&analyticsdomain.PageView{},
		&analyticsdomain.Click{},
		&analyticsdomain.SectionImpression{},
		&billingdomain.CheckoutSession{},
	}
}

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if db.IsPostgres(cfg) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := conn.AutoMigrate(Models()...); err != nil {
			return err
		}

		created, err := seed.EnsureAdmin(conn, cfg.Bootstrap)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
		return nil
	}),
)
