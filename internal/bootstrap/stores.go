package bootstrap

import (
	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/form"
	"github.com/eleven-am/formpulse/internal/response"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideFormStore(db *gorm.DB) *form.Store {
	return form.NewStore(db)
}

func ProvideResponseStore(db *gorm.DB) *response.Store {
	return response.NewStore(db)
}

func ProvideAggregateStore(db *gorm.DB) *analytics.Store {
	return analytics.NewStore(db)
}

func RunMigrations(formStore *form.Store, responseStore *response.Store, aggregateStore *analytics.Store) error {
	if err := formStore.Migrate(); err != nil {
		return err
	}
	if err := responseStore.Migrate(); err != nil {
		return err
	}
	return aggregateStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideFormStore,
		ProvideResponseStore,
		ProvideAggregateStore,
	),
	fx.Invoke(RunMigrations),
)
