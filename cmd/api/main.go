package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/recon-api/internal/application/auth"
	"github.com/jhoicas/recon-api/internal/application/usecase"
	"github.com/jhoicas/recon-api/internal/domain/repository"
	"github.com/jhoicas/recon-api/internal/infrastructure/memory"
	"github.com/jhoicas/recon-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/recon-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/recon-api/internal/interfaces/http"
	"github.com/jhoicas/recon-api/pkg/config"
	"github.com/jhoicas/recon-api/pkg/logger"
)

// stores persistencia seleccionada por STORAGE_DRIVER.
type stores struct {
	users repository.UserRepository
	jobs  repository.JobRepository
	tx    usecase.JobTxRunner
	pins  repository.PinLocker
	ping  func(ctx context.Context) error
	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st := openStores(ctx, cfg, log)
	defer st.close()

	denylist := openDenylist(ctx, cfg, log)

	credentials := auth.NewCredentialStore(st.users, st.pins, cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(auth.JWTConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL(),
		RefreshTTL:    cfg.JWT.RefreshTTL(),
		Issuer:        cfg.JWT.Issuer,
	}, st.users, denylist)

	authUC := auth.NewAuthUseCase(credentials, tokens, log)
	userUC := usecase.NewUserUseCase(st.users, credentials, log)
	jobUC := usecase.NewJobUseCase(st.tx, st.jobs, st.users, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Recon API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := st.ping(c.UserContext()); err != nil {
			log.Warn().Err(err).Msg("health: almacenamiento no disponible")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:       authUC,
		JobUC:        jobUC,
		UserUC:       userUC,
		AccessSecret: cfg.JWT.AccessSecret,
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

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) stores {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		jobs := memory.NewJobRepository()
		return stores{
			users: memory.NewUserRepository(),
			jobs:  jobs,
			tx:    memory.NewTxRunner(jobs),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		pool.Close()
		log.Fatal().Err(err).Msg("migraciones")
	}
	for _, name := range applied {
		log.Info().Str("migration", name).Msg("migración aplicada")
	}
	return stores{
		users: postgres.NewUserRepository(pool),
		jobs:  postgres.NewJobRepository(pool),
		tx:    postgres.NewTxRunner(pool),
		pins:  postgres.NewPinLocker(pool),
		ping:  pool.Ping,
		close: pool.Close,
	}
}

func openDenylist(ctx context.Context, cfg *config.Config, log *logger.Logger) repository.TokenDenylist {
	if cfg.Redis.Addr == "" {
		return memory.NewTokenDenylist()
	}
	client, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
	}
	return infraredis.NewTokenDenylist(client, "")
}
