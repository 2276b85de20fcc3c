package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/availability"
	"github.com/sportsfest/registration/internal/application/cart"
	"github.com/sportsfest/registration/internal/application/inventory"
	"github.com/sportsfest/registration/internal/application/payment"
	"github.com/sportsfest/registration/internal/application/tentquota"
	domaincart "github.com/sportsfest/registration/internal/domain/cart"
	"github.com/sportsfest/registration/internal/domain/coupon"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/organization"
	"github.com/sportsfest/registration/internal/domain/product"
	"github.com/sportsfest/registration/internal/domain/team"
	"github.com/sportsfest/registration/internal/domain/tent"
	"github.com/sportsfest/registration/internal/infrastructure/config"
	"github.com/sportsfest/registration/internal/infrastructure/gateway"
	"github.com/sportsfest/registration/internal/infrastructure/persistence/memory"
	"github.com/sportsfest/registration/internal/infrastructure/persistence/mysql"
	"github.com/sportsfest/registration/internal/infrastructure/persistence/redis"
	"github.com/sportsfest/registration/internal/interface/http/handler"
	"github.com/sportsfest/registration/internal/interface/http/middleware"
	"github.com/sportsfest/registration/internal/interface/http/router"
	"github.com/sportsfest/registration/pkg/jwt"
	"github.com/sportsfest/registration/pkg/mq"
)

// Stores are the repositories of the configured storage driver.
type Stores struct {
	Products      product.Repository
	Orders        order.Repository
	Teams         team.Repository
	Organizations organization.Repository
	Coupons       coupon.Repository
	Tracking      tent.TrackingRepository
	Tx            payment.TxManager
}

// Session is the short-lived state: carts and payment intent locks.
type Session struct {
	Carts  domaincart.Store
	Locker payment.IntentLocker
}

func provideStores(cfg *config.Config, logger *zap.Logger) (*Stores, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		s := memory.NewStore()
		return &Stores{
			Products:      s.Products(),
			Orders:        s.Orders(),
			Teams:         s.Teams(),
			Organizations: s.Organizations(),
			Coupons:       s.Coupons(),
			Tracking:      s.Tracking(),
			Tx:            s,
		}, func() {}, nil
	case "mysql":
		db, err := mysql.NewDB(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return &Stores{
			Products:      mysql.NewProductRepository(db),
			Orders:        mysql.NewOrderRepository(db),
			Teams:         mysql.NewTeamRepository(db),
			Organizations: mysql.NewOrganizationRepository(db),
			Coupons:       mysql.NewCouponRepository(db),
			Tracking:      mysql.NewTrackingRepository(db),
			Tx:            mysql.NewTxManager(db),
		}, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func provideSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, func(), error) {
	if cfg.Cart.Store == "memory" {
		return &Session{Carts: memory.NewCartStore(), Locker: memory.NewIntentLocker()}, func() {}, nil
	}

	client, err := redis.NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = client.Close() }
	return newRedisSession(client, cfg), cleanup, nil
}

func newRedisSession(client *goredis.Client, cfg *config.Config) *Session {
	return &Session{
		Carts:  redis.NewCartStore(client, cfg.Cart.TTL),
		Locker: redis.NewIntentLocker(client),
	}
}

// providePublisher falls back to logging events when RabbitMQ is disabled.
func providePublisher(cfg *config.Config, logger *zap.Logger) (payment.EventPublisher, func(), error) {
	if !cfg.RabbitMQ.Enabled {
		return mq.NewLogPublisher(logger), func() {}, nil
	}

	p, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.ExchangeType, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

func provideLedger(s *Stores, logger *zap.Logger) *inventory.Ledger {
	return inventory.NewLedger(s.Products, logger.Named("inventory"))
}

func provideTentQuota(s *Stores, ledger *inventory.Ledger, logger *zap.Logger) *tentquota.Service {
	return tentquota.NewService(s.Products, s.Orders, s.Teams, s.Organizations, s.Tracking, ledger, logger.Named("tentquota"))
}

func provideCartService(s *Stores, session *Session, ledger *inventory.Ledger, tents *tentquota.Service, logger *zap.Logger) *cart.Service {
	return cart.NewService(session.Carts, s.Products, s.Orders, s.Coupons, ledger, tents, s.Tx, logger.Named("cart"))
}

func providePaymentService(
	cfg *config.Config,
	s *Stores,
	session *Session,
	ledger *inventory.Ledger,
	tents *tentquota.Service,
	publisher payment.EventPublisher,
	logger *zap.Logger,
) *payment.Service {
	return payment.NewService(payment.Deps{
		Orders:    s.Orders,
		Products:  s.Products,
		Coupons:   s.Coupons,
		Ledger:    ledger,
		Tents:     tents,
		Teams:     payment.NewTeamCreator(s.Teams),
		Gateway:   gateway.NewClient(cfg.Payment, logger.Named("gateway")),
		Locker:    session.Locker,
		Publisher: publisher,
		Tx:        s.Tx,
	}, payment.Options{
		ReleaseOnFailure: cfg.Payment.ReleaseOnFailure,
		LockTTL:          cfg.Payment.LockTTL,
	}, logger.Named("payment"))
}

func provideReporter(s *Stores, tents *tentquota.Service) *availability.Reporter {
	return availability.NewReporter(s.Products, s.Orders, s.Organizations, tents)
}

func provideHandlers(
	cfg *config.Config,
	reporter *availability.Reporter,
	ledger *inventory.Ledger,
	tents *tentquota.Service,
	carts *cart.Service,
	payments *payment.Service,
	logger *zap.Logger,
) router.Handlers {
	verifier := gateway.NewVerifier(cfg.Payment.WebhookSecret, cfg.Payment.WebhookTolerance)
	return router.Handlers{
		Product: handler.NewProductHandler(reporter, ledger, tents),
		Cart:    handler.NewCartHandler(carts),
		Payment: handler.NewPaymentHandler(payments, verifier, logger.Named("http")),
	}
}

func provideEngine(cfg *config.Config, h router.Handlers, jwtManager *jwt.Manager, logger *zap.Logger) *gin.Engine {
	return router.New(cfg.Server.Mode, h, middleware.NewAuthMiddleware(jwtManager), logger)
}
