package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-normalizer/internal/api"
	"recipe-normalizer/internal/core/cache"
	recipeService "recipe-normalizer/internal/core/recipe"
	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/infrastructure/database"
	"recipe-normalizer/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("env", cfg.App.Env),
		zap.String("database", cfg.Database.Name),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	// 連線資料庫並完成遷移
	db, err := database.Configure(cfg.Database)
	if err != nil {
		common.LogFatal("Failed to configure database", zap.Error(err))
	}

	// 初始化搜尋結果緩存
	resultCache, err := cache.NewService(&cfg.Cache, &cfg.Redis)
	if err != nil {
		// 緩存只是優化，連不上時降級為直接計算
		common.LogWarn("Failed to initialize result cache, continuing without cache", zap.Error(err))
		resultCache = nil
	}
	defer resultCache.Close()

	// 啟動批次正規化佇列（單一協調器）
	normalizer := recipeService.NewNormalizeService(db, cfg)
	queue := recipeService.NewBatchQueue(cfg, normalizer)
	queue.Start()
	defer queue.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, db, resultCache, queue)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
