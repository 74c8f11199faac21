package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"vexoj/internal/sandbox"
	"vexoj/pkg/utils/logger"

	"go.uber.org/zap"
)

// sandbox-init verifies that isolate is installed and every box id the
// worker will lease can be initialized. Run it once on a fresh host
// before starting judge-worker.
func main() {
	binary := flag.String("binary", "isolate", "Path to the isolate binary")
	boxes := flag.Int("boxes", 8, "Number of box ids to check")
	flag.Parse()

	if err := logger.Init(logger.Config{Level: "info", Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	backend := sandbox.NewIsolateBackend(*binary)

	failed := 0
	for id := 0; id < *boxes; id++ {
		box, err := backend.Init(ctx, id)
		if err != nil {
			logger.Error(ctx, "box init failed", zap.Int("box_id", id), zap.Error(err))
			failed++
			continue
		}
		logger.Info(ctx, "box ok", zap.Int("box_id", id), zap.String("dir", box.Dir))
		if err := backend.Cleanup(ctx, id); err != nil {
			logger.Warn(ctx, "box cleanup failed", zap.Int("box_id", id), zap.Error(err))
		}
	}

	if failed > 0 {
		logger.Error(ctx, "sandbox check failed", zap.Int("failed", failed), zap.Int("total", *boxes))
		os.Exit(1)
	}
	logger.Info(ctx, "sandbox check passed", zap.Int("boxes", *boxes))
}
