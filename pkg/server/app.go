package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "AlertEngine/pkg/http"
	pkgkafka "AlertEngine/pkg/kafka"
	applogger "AlertEngine/pkg/logger"
)

// Scheduler is the cadence driver started and stopped with the app.
type Scheduler interface {
	Start() error
	Stop()
}

// App encapsulates the entire application lifecycle.
type App struct {
	log             *applogger.Logger
	scheduler       Scheduler
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	shutdownTimeout time.Duration
}

// New creates the app. consumer may be nil when no topic is consumed.
func New(
	log *applogger.Logger,
	scheduler Scheduler,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	shutdownTimeout time.Duration,
) *App {
	return &App{
		log:             log,
		scheduler:       scheduler,
		httpServer:      httpServer,
		consumer:        consumer,
		shutdownTimeout: shutdownTimeout,
	}
}

// Consume registers a handler on the consumer; it is ignored without a consumer.
func (a *App) Consume(h pkgkafka.MessageHandler) {
	if a.consumer == nil || h == nil {
		return
	}
	a.handlers = append(a.handlers, h)
}

// Start brings up the HTTP server, the consumer and the scheduler.
func (a *App) Start() error {
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			a.log.Info("kafka-handler-registered", applogger.String("topic", h.Topic()))
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
	}

	return a.scheduler.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		a.log.Error("app-start-failed", applogger.Error(err))
		_ = a.Shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	a.log.Info("shutdown-signal-received", applogger.String("signal", sig.String()))
	return a.Shutdown(context.Background())
}

// Shutdown stops intake first and then waits for the running cycle.
// Infrastructure clients are closed by the injector cleanup afterwards.
func (a *App) Shutdown(ctx context.Context) error {
	if a.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.shutdownTimeout)
		defer cancel()
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http-shutdown-failed", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka-consumer-stop-failed", applogger.Error(err))
		}
	}

	a.scheduler.Stop()

	a.log.Info("shutdown-complete")
	return nil
}
