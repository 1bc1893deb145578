package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	appbilling "github.com/tu-usuario/facturacion-api/internal/application/billing"
	"github.com/tu-usuario/facturacion-api/internal/application/reconcile"
	"github.com/tu-usuario/facturacion-api/internal/infrastructure/pdf"
	"github.com/tu-usuario/facturacion-api/internal/infrastructure/postgres"
	"github.com/tu-usuario/facturacion-api/internal/infrastructure/queue"
	infraredis "github.com/tu-usuario/facturacion-api/internal/infrastructure/redis"
	"github.com/tu-usuario/facturacion-api/internal/infrastructure/signer"
	"github.com/tu-usuario/facturacion-api/internal/infrastructure/storage"
	infrasunat "github.com/tu-usuario/facturacion-api/internal/infrastructure/sunat"
	httpRouter "github.com/tu-usuario/facturacion-api/internal/interfaces/http"
	"github.com/tu-usuario/facturacion-api/pkg/config"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
)

// Tasa de IGV vigente.
var igvRate = decimal.RequireFromString("0.18")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	rdb, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer rdb.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	estRepo := postgres.NewEstablishmentRepository(pool)
	posRepo := postgres.NewPointOfSaleRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	seriesRepo := postgres.NewSeriesRepository(pool)
	docRepo := postgres.NewDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	locker := infraredis.NewLocker(rdb)
	counterCache := infraredis.NewCounterCache(rdb)
	notifier := infraredis.NewNotifier(rdb, log)

	store := storage.NewFileStore(cfg.Storage.Root)
	cdrReader := infrasunat.NewCDRReader()
	gateway := infrasunat.NewSOAPClient(cfg.SUNAT.Endpoint, cfg.SUNAT.Timeout, cdrReader, log)
	docSigner := signer.NewHTTPSigner(cfg.Signer.Endpoint, cfg.Signer.Timeout)
	renderer := pdf.NewMarotoRenderer()

	providerCreds := appbilling.Credentials{
		RUC:      cfg.SUNAT.ProviderRUC,
		User:     cfg.SUNAT.ProviderUser,
		Password: cfg.SUNAT.ProviderPassword,
	}
	submitUC := appbilling.NewSubmitDocumentUseCase(
		docRepo, companyRepo, estRepo,
		store, gateway, cdrReader, docSigner, notifier,
		providerCreds, log,
	)

	jobQueue := queue.New(queue.Config{
		Size:        cfg.Worker.QueueSize,
		MaxRetries:  cfg.Worker.MaxAttempts,
		BackoffBase: cfg.Worker.BackoffBase,
	}, submitUC.Handle, log)

	allocator := appbilling.NewSequenceAllocator(locker, counterCache, seriesRepo, log)
	createDocumentUC := appbilling.NewCreateDocumentUseCase(
		txRunner, allocator,
		companyRepo, estRepo, posRepo, customerRepo, seriesRepo, docRepo,
		docSigner, renderer, store, jobQueue, notifier,
		igvRate, log,
	)
	cancelUC := appbilling.NewRequestCancellationUseCase(
		docRepo, companyRepo, jobQueue, notifier, log,
	)

	sweep := reconcile.NewSweep(
		docRepo, estRepo, companyRepo,
		store, cdrReader, submitUC, jobQueue,
		cfg.Sweep.StuckAfter, log,
	)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	jobQueue.Start(workerCtx, cfg.Worker.Count)

	// Barridos de reconciliación: modo inmediato (atascados) y diferido (lotes).
	go runEvery(workerCtx, cfg.Sweep.ImmediateEvery, sweep.RunImmediate)
	go runEvery(workerCtx, cfg.Sweep.DeferredEvery, sweep.RunDeferred)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		CreateDocument:      createDocumentUC,
		RequestCancellation: cancelUC,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	cancelWorkers()
	jobQueue.Stop()
	log.Info().Msg("aplicación detenida")
}

// runEvery ejecuta fn con la cadencia dada hasta que el contexto se cancele.
func runEvery(ctx context.Context, every time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
