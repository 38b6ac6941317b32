package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/kangminhyuk1111/hoops/internal/config"
	"github.com/kangminhyuk1111/hoops/internal/database"
	"github.com/kangminhyuk1111/hoops/internal/handler"
	"github.com/kangminhyuk1111/hoops/internal/logger"
	"github.com/kangminhyuk1111/hoops/internal/middleware"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/queue"
	"github.com/kangminhyuk1111/hoops/internal/repository"
	"github.com/kangminhyuk1111/hoops/internal/router"
	"github.com/kangminhyuk1111/hoops/internal/scheduler"
	"github.com/kangminhyuk1111/hoops/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside local development

	cfg := config.Load()
	policy := config.LoadMatchPolicy()
	lg := logger.New("hoops", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		lg.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			lg.Fatalf("%v", err)
		}
	}

	store := repository.NewStore(db)

	// Redis is optional: without it the geo index, rate limiter and response
	// cache are disabled and the scheduler falls back to a ticker.
	redisCfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(redisCfg)
	var asynqOpt *asynq.RedisClientOpt
	var index service.GeoIndex
	if rdb == nil {
		lg.Warnf("redis unavailable at %s; running without geo index, rate limit and cache", redisCfg.Addr)
	} else {
		defer rdb.Close()
		opt := redisCfg.AsynqOpt()
		asynqOpt = &opt
		gi := repository.NewGeoIndex(rdb)
		active, err := store.SearchMatches(ctx, repository.MatchSearch{
			Statuses: []model.MatchStatus{model.MatchPending, model.MatchInProgress},
		})
		if err == nil {
			err = gi.Rebuild(ctx, active)
		}
		if err != nil {
			lg.Warnf("geo index rebuild failed, searches use the bounding box: %v", err)
		} else {
			lg.Infof("geo index rebuilt with %d matches", len(active))
			index = gi
		}
	}

	publisher := queue.NewPublisher(cfg.RabbitURL, lg)
	defer publisher.Close()

	deps := service.Deps{
		Store:    store,
		Notifier: publisher,
		Index:    index,
		Policy:   policy,
		Log:      lg,
	}
	matches := service.NewMatchService(deps)
	participations := service.NewParticipationService(deps)
	query := service.NewQueryService(deps)
	locations := service.NewLocationService(store, lg)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	notifications := repository.NewNotificationRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Logger = lg
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			lg.Infof("%s %s %d %s rid=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.RegisterRoutes(e, handler.NewHealthHandler(db, rdb))

	// Public reads identify the caller when a token is present so the rate
	// limiter can key per user.
	api := e.Group("/api",
		middleware.OptionalJWT(cfg.JWTSecret),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)
	router.RegisterAuth(api, handler.NewAuthHandler(cfg, users, tokens))
	router.RegisterMatches(api,
		handler.NewMatchHandler(matches, query, policy.Location),
		handler.NewParticipationHandler(participations),
		cfg.JWTSecret)
	router.RegisterLocations(api, handler.NewLocationHandler(locations), cfg.JWTSecret, config.LoadCacheConfig(), rdb)
	router.RegisterAccount(api, handler.NewUserHandler(users), handler.NewNotificationHandler(notifications), cfg.JWTSecret)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Cache", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
	}).Handler(e)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Infof("listening on %s (env=%s)", srv.Addr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		return queue.NewConsumer(cfg.RabbitURL, notifications, lg).Run(gctx)
	})
	g.Go(func() error {
		return scheduler.New(matches, policy.TransitionInterval, policy.ReindexInterval, asynqOpt, lg).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		lg.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
	lg.Info("server stopped")
}
