package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"contactguard/internal/config"
	"contactguard/internal/constants"
	"contactguard/internal/intake"
	"contactguard/internal/logger"
	"contactguard/internal/mailer"
	"contactguard/internal/spam"
	"contactguard/internal/validation"
	"contactguard/pkg/bootstrap"
	"contactguard/pkg/circuitbreaker"
	"contactguard/pkg/health"
	"contactguard/pkg/logging"
	"contactguard/pkg/metrics"
	"contactguard/pkg/middleware"
	"contactguard/pkg/ratelimit"
	"contactguard/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	redisConnector *bootstrap.RedisConnector
	redis          *redis.Client
	limiter        *ratelimit.Limiter
	breaker        *ratelimit.CircuitBreakerStore
	events         *intake.BrokerPublisher
	service        *intake.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:           bootstrap.NewBase(cfg, log),
		redisConnector: bootstrap.NewRedisConnector(cfg.Redis, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.RegisterIntakeMetrics()
	metrics.RegisterRateLimitMetrics()
	metrics.RegisterMailMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	tp, err := tracing.Init(a.Config.Tracing, a.Config.Tracing.ServiceName,
		attribute.String("contact.path", a.Config.Server.ContactPath),
		attribute.String("mail.transport", a.Config.Mail.Transport),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initLimiter(ctx); err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	a.InitBroker()

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initLimiter(ctx context.Context) error {
	rdb, err := a.redisConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	rl := a.Config.RateLimit
	var opts []ratelimit.Option
	if rdb != nil {
		var shared ratelimit.Store = ratelimit.NewRedisStore(rdb, rl.KeyPrefix)
		if a.Config.CircuitBreaker.Enabled {
			a.breaker = ratelimit.NewCircuitBreakerStore(shared, circuitbreaker.ConfigFor("ratelimit-redis", a.Config.CircuitBreaker))
			shared = a.breaker
		}
		opts = append(opts, ratelimit.WithSharedStore(shared))
	}

	a.limiter = ratelimit.NewLimiter(
		ratelimit.Config{
			Window:       rl.Window,
			MaxRequests:  rl.MaxRequests,
			StoreTimeout: rl.StoreTimeout,
		},
		ratelimit.NewMemoryStore(rl.Shards),
		a.Logger,
		opts...,
	)
	return nil
}

func (a *App) initService(ctx context.Context) error {
	classifier, err := spam.NewClassifier(a.Config.Spam, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create spam classifier: %w", err)
	}

	dispatcher, err := mailer.New(ctx, a.Config.Mail, a.Config.CircuitBreaker, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create mail dispatcher: %w", err)
	}

	deps := intake.Dependencies{
		Limiter:    a.limiter,
		Validator:  validation.NewValidator(a.Config.Intake),
		Classifier: classifier,
		Dispatcher: dispatcher,
		Events:     intake.NopPublisher{},
	}
	if a.Config.Broker.Enabled {
		a.events = intake.NewBrokerPublisher(a.Producer, a.Config.Broker.Kafka.EventsTopic, a.Config.Broker.Kafka.PublishTimeout, a.Logger)
		deps.Events = a.events
	}

	a.service = intake.NewService(deps, intake.MailSettings{
		From:        a.Config.Mail.From,
		To:          a.Config.Mail.To,
		SendTimeout: a.Config.Mail.SendTimeout,
	}, a.Logger)
	return nil
}

func (a *App) initHTTPServer() {
	router := newRouter(a.Config, a.Logger, a.service, newHealthRegistry(a.redis, a.breaker))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// newHealthRegistry registers the shared rate limit store as optional: the
// service keeps admitting on local state without it.
func newHealthRegistry(rdb *redis.Client, breaker *ratelimit.CircuitBreakerStore) *health.CheckerRegistry {
	registry := health.NewCheckerRegistry()
	if rdb != nil {
		registry.RegisterOptional(health.NewRedisChecker(rdb))
	}
	if breaker != nil {
		registry.RegisterOptional(health.NewFuncChecker("ratelimit_breaker", breaker.Check))
	}
	return registry
}

func newRouter(cfg *config.Config, log logger.Logger, service intake.Submitter, registry *health.CheckerRegistry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName, "/health", "/metrics"), tracing.LogCorrelation())
	}
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RecoveryMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		h := registry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	intake.NewHandler(service, cfg.Server.ContactPath, cfg.Server.MaxBodyBytes, log).RegisterRoutes(router)

	return router
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting",
			"port", a.Config.Server.Port,
			"contact_path", a.Config.Server.ContactPath,
		)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sweepCtx := logging.WithServiceName(gCtx, constants.ServiceName)
		a.limiter.Local().StartSweeper(gCtx, a.Config.RateLimit.SweepInterval, a.limiter.Window(), func(removed, tracked int) {
			metrics.SetRateLimitTrackedIdentities(tracked)
			a.Logger.DebugwCtx(sweepCtx, "Rate limit sweep", "removed", removed, "tracked", tracked)
		})
		return nil
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down contact service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.events != nil {
			a.events.Wait()
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.redisConnector.Shutdown(a.redis)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
