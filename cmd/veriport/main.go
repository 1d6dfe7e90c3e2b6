package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/veriport/veriport/internal/config"
	"github.com/veriport/veriport/internal/infra/database"
	"github.com/veriport/veriport/internal/infra/ledger"
	"github.com/veriport/veriport/internal/infra/repository"
	"github.com/veriport/veriport/internal/infra/store"
	"github.com/veriport/veriport/internal/present/rest"
	"github.com/veriport/veriport/internal/service"
	"github.com/veriport/veriport/internal/trace"
	"github.com/veriport/veriport/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	ctx := context.Background()

	conf, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if conf.Server.EnableTrace {
		shutdown, err := trace.Setup(ctx, "veriport", conf.Server.TraceEndpoint)
		if err != nil {
			panic("failed to setup tracing: " + err.Error())
		}
		defer shutdown(ctx)
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}
	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	ledgerRepo, err := ledger.NewRepository(conf.Ledger)
	if err != nil {
		panic("failed to connect ledger: " + err.Error())
	}

	storeClient := store.New(conf.Store)
	auditRepo := repository.NewAuditRepository(db)
	eventCache := repository.NewEventCacheRepository(mc)
	signal := service.NewSignalService(rdb)

	verifyUC := usecase.NewVerifyUsecase(storeClient)
	lifecycleUC := usecase.NewLifecycleUsecase(ledgerRepo, storeClient, verifyUC, auditRepo, signal, ledgerRepo.Sender())
	discoveryUC := usecase.NewDiscoveryUsecase(ledgerRepo, eventCache, conf.Ledger.DeployHeight)

	handler := rest.NewHandler(lifecycleUC, discoveryUC, verifyUC, signal)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("veriport"))
	}

	handler.RegisterRoutes(e)

	slog.Info("starting server",
		slog.String("listen", conf.Server.ListenAddr),
		slog.String("contract", conf.Ledger.ContractAddress),
		slog.String("module", "main"),
	)

	e.Logger.Fatal(e.Start(conf.Server.ListenAddr))
}
