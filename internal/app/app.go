package app

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/pattadon/petshop/internal/adapters/httpserver"
	"github.com/pattadon/petshop/internal/adapters/repo/postgres"
	"github.com/pattadon/petshop/internal/config"
	"github.com/pattadon/petshop/internal/domain"
	"github.com/pattadon/petshop/internal/usecase"
)

type App struct {
	DB       *gorm.DB
	Cfg      config.Config
	Store    domain.Store
	Catalog  *usecase.CatalogUC
	Carts    *usecase.CartUC
	Orders   *usecase.OrderUC
	Reviews  *usecase.ReviewUC
	Sweeper  *usecase.Sweeper
	Notifier *usecase.Notifier
	OAuth    *oauth2.Config
}

func NewApp(db *gorm.DB, cfg config.Config) (*App, error) {
	store := postgres.NewStore(db)

	catalog := &usecase.CatalogUC{Store: store, DefaultLowStockThreshold: cfg.LowStockThreshold}
	orders := &usecase.OrderUC{Store: store, DefaultPickupWindow: cfg.PickupWindow}

	var oauthCfg *oauth2.Config
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	return &App{
		DB:      db,
		Cfg:     cfg,
		Store:   store,
		Catalog: catalog,
		Carts:   &usecase.CartUC{Store: store},
		Orders:  orders,
		Reviews: &usecase.ReviewUC{Store: store},
		Sweeper: &usecase.Sweeper{
			Store:    store,
			Orders:   orders,
			Interval: cfg.SweepInterval,
		},
		Notifier: &usecase.Notifier{
			Store:    store,
			Catalog:  catalog,
			Interval: cfg.NotifyInterval,
		},
		OAuth: oauthCfg,
	}, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Options{
		Catalog:            a.Catalog,
		Carts:              a.Carts,
		Orders:             a.Orders,
		Reviews:            a.Reviews,
		Notifier:           a.Notifier,
		Store:              a.Store,
		OAuth:              a.OAuth,
		SessionKey:         a.Cfg.SessionKey,
		AdminAllowedEmails: a.Cfg.AdminAllowedEmails,
	})
}

// StartBackground launches the expiration sweeper and the admin alert
// poller; both stop when ctx is cancelled.
func (a *App) StartBackground(ctx context.Context) {
	a.Sweeper.Start(ctx)
	a.Notifier.Start(ctx)
}

func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Variant{}, &domain.Size{}, &domain.Generation{}, &domain.Image{},
		&domain.CartLine{}, &domain.Order{}, &domain.OrderLine{}, &domain.Review{},
		&domain.User{}, &postgres.Setting{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_status_expire ON orders(status, expire_at)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_combo_nogen ON variants (product_id, size_id) WHERE generation_id IS NULL").Error

	return nil
}
