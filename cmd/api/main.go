package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/job"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	//.envは無ければ無いでよい（本番は環境変数直）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}

	if err := gormDB.AutoMigrate(
		&model.Tenant{},
		&model.TenantDomain{},
		&model.User{},
		&model.Session{},
	); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//Redis（繋がらなければnil＝DB直引き）
	rdb := cache.NewRedisClient(ctx, cfg, logger)

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	sessionRepo := infraRepo.NewSessionRepository(gormDB)
	tenantRepo := infraRepo.NewTenantGormRepository(gormDB)
	domainRepo := infraRepo.NewTenantDomainGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//ホスト名→テナント解決（毎リクエストのホットパスなのでキャッシュを挟む）
	lookup := cache.NewCachedDomainLookup(
		rdb,
		infraRepo.NewTenantDomainLookupGorm(gormDB),
		cfg.DomainCacheTTL,
		logger,
	)

	//Usecase生成
	tokens := usecase.NewTokenService(cfg, sessionRepo, userRepo, logger)
	authValidator := validator.NewAuthValidator(userRepo)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, tenantRepo, sessionRepo, txManager, tokens, authValidator, logger)
	domainUC := usecase.NewTenantDomainUsecase(domainRepo, txManager, cache.NewDomainInvalidator(rdb), logger)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	domainH := handler.NewTenantDomainHandler(domainUC)

	//セッション掃除（1時間ごと）
	retention := time.Duration(cfg.SessionRetentionDays) * 24 * time.Hour
	cleanup := job.NewSessionCleanupWorker(sessionRepo, retention, time.Hour, logger)
	cleanup.Start(ctx)

	//Server起動
	e := server.New(server.Deps{
		Cfg:     cfg,
		Log:     logger,
		AuthH:   authH,
		DomainH: domainH,
		Lookup:  lookup,
		Tokens:  tokens,
	})

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", addr))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.GoEnv == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
