package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"futures-signal/internal/config"
	"futures-signal/internal/database"
	httpapi "futures-signal/internal/http"
	"futures-signal/internal/logger"
	"futures-signal/internal/market"
	"futures-signal/internal/repository"
	"futures-signal/internal/scheduler"
	"futures-signal/internal/service"
	"futures-signal/internal/store"
	"futures-signal/internal/tushare"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File, "futures-signal")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.ApplySchema(db); err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}

	// Redis 不可达时退化为进程内缓存，只影响 K 线/现价缓存命中率
	var kv store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis 不可用，使用内存缓存", zap.Error(err))
		kv = store.NewMemoryKV()
	} else {
		kv = store.NewRedisKV(redisClient)
	}
	pingCancel()

	usersRepo := repository.NewPostgresUsersRepository(db)
	sessionsRepo := repository.NewPostgresSessionsRepository(db)
	postsRepo := repository.NewPostgresPostsRepository(db)
	draftsRepo := repository.NewPostgresDraftsRepository(db)
	collectionsRepo := repository.NewPostgresCollectionsRepository(db)
	historyRepo := repository.NewPostgresBrowseHistoryRepository(db)
	contractsRepo := repository.NewPostgresContractsRepository(db)

	tuClient := tushare.NewClient(cfg.Tushare.APIURL, cfg.Tushare.Token, log)
	if !tuClient.Configured() {
		log.Warn("Tushare token 未配置，K 线与行情同步接口将返回 503")
	}

	tokens := service.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authSvc := service.NewAuthService(usersRepo, sessionsRepo, tokens, log)
	postSvc := service.NewPostService(postsRepo, collectionsRepo, historyRepo, log)
	draftSvc := service.NewDraftService(draftsRepo, log)
	accountSvc := service.NewAccountService(collectionsRepo, historyRepo, log)
	adminSvc := service.NewUserAdminService(usersRepo, sessionsRepo, log)
	uploadSvc, err := service.NewUploadService(cfg.Upload.Dir, log)
	if err != nil {
		log.Fatal("上传目录创建失败", zap.Error(err))
	}
	predictSvc := service.NewPredictService(usersRepo, uploadSvc,
		market.NewFallbackEngine(time.Now().UnixNano()), log)
	klineSvc := market.NewKlineService(tuClient, kv, log)
	contractSvc := service.NewContractService(contractsRepo, postsRepo, tuClient, log)
	priceSvc := service.NewPriceService(postsRepo, tuClient, kv, log)

	auth := httpapi.NewAuthMiddleware(tokens, sessionsRepo, usersRepo, log)
	router := httpapi.NewRouter(log)
	router.Register(&httpapi.Handlers{
		Auth:      httpapi.NewAuthHandler(authSvc, log),
		Posts:     httpapi.NewPostHandler(postSvc, log),
		Drafts:    httpapi.NewDraftHandler(draftSvc, log),
		Account:   httpapi.NewAccountHandler(accountSvc, log),
		AdminUser: httpapi.NewAdminUserHandler(adminSvc, log),
		Kline:     httpapi.NewKlineHandler(klineSvc, log),
		Upload:    httpapi.NewUploadHandler(uploadSvc, cfg.Upload.MaxBytes, log),
		Predict:   httpapi.NewPredictHandler(predictSvc, log),
		Rankings:  httpapi.NewRankingHandler(service.NewUnavailableRankingProvider(), log),
		Sync:      httpapi.NewSyncHandler(contractSvc, log),
		Price:     httpapi.NewPriceHandler(priceSvc, log),
	}, auth, "futures-signal")

	var handler http.Handler = router
	handler = httpapi.CORS(strings.Split(cfg.HTTP.CORSOrigins, ","), handler)

	sched := scheduler.New(priceSvc, contractSvc, usersRepo, sessionsRepo, log)
	if err := sched.Start(cfg.Jobs.PriceUpdateMinutes, cfg.Jobs.ExpirySweepEnabled); err != nil {
		log.Fatal("定时任务启动失败", zap.Error(err))
	}

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("收到退出信号")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP 服务异常退出", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	sched.Stop()
	_ = redisClient.Close()
}
