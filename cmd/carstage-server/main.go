package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carstage/carstage/internal/config"
	"github.com/carstage/carstage/internal/logging"
	"github.com/carstage/carstage/internal/server"
	"github.com/carstage/carstage/pkg/blendapi"
	"github.com/carstage/carstage/pkg/depth"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Logger.Info("starting carstage server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	cache := server.NewBlendCache(&cfg.Redis)
	if err := cache.Ping(context.Background()); err != nil {
		logging.Logger.Warn("redis connection failed, blend cache disabled", zap.Error(err))
		cache = nil
	} else {
		logging.Logger.Info("redis connected successfully")
		defer cache.Close()
	}

	blend, err := blendapi.NewClient(cfg.Services.BlendURL)
	if err != nil {
		logging.Logger.Fatal("failed to create blend client", zap.Error(err))
	}

	store := server.NewSessionStore(depth.Config{
		MinScale:    cfg.Depth.MinScale,
		MaxScale:    cfg.Depth.MaxScale,
		MinRotation: cfg.Depth.MinRotation,
		MaxRotation: cfg.Depth.MaxRotation,
	})

	h := server.NewHandler(cfg, store, blend, cache)

	gin.SetMode(cfg.Server.Mode)
	r := server.New(h, Version)

	logging.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(cfg.Server.Port); err != nil {
		logging.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
