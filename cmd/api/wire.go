//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/infrastructure/config"
)

var storageSet = wire.NewSet(
	provideStores,
	provideSession,
	providePublisher,
)

var applicationSet = wire.NewSet(
	provideLedger,
	provideTentQuota,
	provideCartService,
	providePaymentService,
	provideReporter,
)

var httpSet = wire.NewSet(
	provideJWTManager,
	provideHandlers,
	provideEngine,
)

// InitializeEngine is the injector behind buildEngine. Run `wire gen ./cmd/api`
// to regenerate wire_gen.go after changing a provider.
func InitializeEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gin.Engine, func(), error) {
	wire.Build(storageSet, applicationSet, httpSet)
	return nil, nil, nil
}
