package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "TradePilot/pkg/http"
	pkgkafka "TradePilot/pkg/kafka"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/queue"
)

// Sweeper runs periodic maintenance until ctx is done.
type Sweeper interface {
	Run(ctx context.Context, interval time.Duration)
}

// Options are the lifecycle settings of App.
type Options struct {
	ShutdownTimeout time.Duration
	SweepInterval   time.Duration
}

// App encapsulates the serving lifecycle: HTTP API, queue workers, the Kafka
// consumer and the sweep ticker.
type App struct {
	opts     Options
	log      *logger.Logger
	http     *xhttp.Server
	queue    queue.Queue
	consumer *pkgkafka.Consumer
	handlers []pkgkafka.MessageHandler
	sweeper  Sweeper
}

// New creates an App. consumer and sweeper may be nil.
func New(
	opts Options,
	lgr *logger.Logger,
	httpServer *xhttp.Server,
	q queue.Queue,
	consumer *pkgkafka.Consumer,
	sweeper Sweeper,
	handlers ...pkgkafka.MessageHandler,
) *App {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}
	return &App{
		opts:     opts,
		log:      lgr,
		http:     httpServer,
		queue:    q,
		consumer: consumer,
		handlers: handlers,
		sweeper:  sweeper,
	}
}

// Run starts every component and blocks until ctx is cancelled, a signal arrives
// or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.queue.Start(ctx); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}

	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			a.log.Info("kafka handler registered", logger.String("topic", h.Topic()))
		}
		if err := a.consumer.Start(ctx); err != nil {
			a.shutdown()
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	if a.sweeper != nil && a.opts.SweepInterval > 0 {
		go a.sweeper.Run(sweepCtx, a.opts.SweepInterval)
		a.log.Info("sweep ticker started", logger.Duration("interval", a.opts.SweepInterval))
	}

	if err := a.http.Start(); err != nil {
		a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-a.http.Err():
		a.log.Error("http server failed", logger.Error(err))
		runErr = err
	}

	cancelSweep()
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops intake first (HTTP, Kafka), then drains the queue workers.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer: %w", err))
		}
	}
	if err := a.queue.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("queue: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		a.log.Error("shutdown finished with errors", logger.Error(err))
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
