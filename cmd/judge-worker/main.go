package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vexoj/internal/common/cache"
	"vexoj/internal/common/storage"
	"vexoj/internal/judge"
	"vexoj/internal/problem"
	"vexoj/internal/queue"
	"vexoj/internal/sandbox"
	"vexoj/internal/worker"
	"vexoj/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_worker.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	backend := sandbox.NewIsolateBackend(appCfg.Sandbox.Binary)
	pool, err := sandbox.NewPool(backend, appCfg.Sandbox.MaxBoxes)
	if err != nil {
		logger.Error(context.Background(), "init sandbox pool failed", zap.Error(err))
		return
	}

	langs := judge.NewRegistry(appCfg.Language.Languages)
	pipeline := judge.NewPipeline(backend)
	orchestrator := judge.NewOrchestrator(pool, pipeline, langs)
	packs := problem.NewDataPackManager(appCfg.DataPack.RootDir, appCfg.MinIO.Bucket, objStorage)
	jobQueue := queue.New(redisCache)

	w := worker.New(jobQueue, orchestrator, pipeline, pool, langs, packs, appCfg.Worker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		logger.Error(context.Background(), "worker stopped", zap.Error(err))
		return
	}
	logger.Info(context.Background(), "worker shut down")
}
