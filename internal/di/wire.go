//go:build wireinject
// +build wireinject

package di

import (
	"TradePilot/pkg/config"
	"TradePilot/pkg/queue"
	"TradePilot/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideStore,
	ProvideRedisClient,
	ProvideCacheBackend,
	ProvideLocker,
	ProvideCacheService,
	ProvideKafkaProducer,
	ProvideTradeEventPublisher,
	ProvideLogShipping,
)

var serviceSet = wire.NewSet(
	ProvideMarketData,
	ProvidePortfolio,
	ProvideChatModel,
	ProvideGenerator,
	ProvideRecommendationGenerator,
	ProvideAnalyst,
	ProvideDigestWriter,
	ProvideWalletClient,
	ProvideBalances,
	ProvideWalletAgent,
)

var workflowSet = wire.NewSet(
	ProvideLedger,
	ProvideExecutor,
	ProvideExecuteTradeJob,
	ProvideTradeSubmitter,
	ProvideTrader,
	ProvideManager,
	ProvideAnalystWorkflow,
	ProvideSweeper,
	ProvideDigestWorkflow,
)

// InitializeApp wires the serving application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		serviceSet,
		workflowSet,
		ProvideQueue,
		ProvideTradeStream,
		ProvideKafkaConsumer,
		ProvideTradeEventsHandler,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeRuntime wires the workflows for one-shot CLI commands over an in-process queue.
func InitializeRuntime(cfg *config.Config) (*Runtime, func(), error) {
	wire.Build(
		infraSet,
		serviceSet,
		workflowSet,
		ProvideLocalQueue,
		wire.Bind(new(queue.Queue), new(*queue.LocalQueue)),
		ProvideRuntime,
	)
	return nil, nil, nil
}
