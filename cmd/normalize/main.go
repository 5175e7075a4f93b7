package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"recipe-normalizer/internal/core/feed"
	recipeService "recipe-normalizer/internal/core/recipe"
	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/infrastructure/database"
	"recipe-normalizer/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var (
		filePath  = flag.String("file", "", "本地 feed 檔案路徑（JSON 陣列或 NDJSON）")
		feedURL   = flag.String("url", "", "遠端 feed URL")
		batchSize = flag.Int("batch-size", 0, "批次大小，0 表示使用設定值")
		logDir    = flag.String("log-dir", "logs/normalizations", "正規化執行日誌目錄")
	)
	flag.Parse()

	if *filePath == "" && *feedURL == "" {
		fmt.Fprintln(os.Stderr, "usage: normalize -file <path> | -url <url> [-batch-size n]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if *batchSize <= 0 {
		*batchSize = cfg.Normalize.BatchSize
	}

	db, err := database.Configure(cfg.Database)
	if err != nil {
		common.LogFatal("Failed to configure database", zap.Error(err))
	}

	// 讀取 feed
	feedSvc := feed.NewService()
	var recipes []recipeService.RawRecipe
	if *filePath != "" {
		recipes, err = feedSvc.FetchFile(*filePath)
	} else {
		recipes, err = feedSvc.FetchURL(context.Background(), *feedURL)
	}
	if err != nil {
		common.LogFatal("Failed to load feed", zap.Error(err))
	}

	// 本次執行的專屬日誌
	runLogger, err := recipeService.NewNormalizeLogger(*logDir)
	if err != nil {
		common.LogWarn("Failed to open run logger, falling back to global logger", zap.Error(err))
		runLogger = nil
	}
	defer runLogger.Close()

	normalizer := recipeService.NewNormalizeService(db, cfg)
	normalizer.SetRunLogger(runLogger)

	common.LogInfo("開始批次正規化",
		zap.Int("total", len(recipes)),
		zap.Int("batch_size", *batchSize),
		zap.String("run_log", runLogger.Path()),
	)

	// 逐批處理：批內交易原子，批與批之間獨立，失敗批記錄後繼續
	var succeeded, failed, aborted int
	for start := 0; start < len(recipes); start += *batchSize {
		end := start + *batchSize
		if end > len(recipes) {
			end = len(recipes)
		}

		results, err := normalizer.ProcessBatch(context.Background(), recipes[start:end])
		if err != nil {
			aborted += end - start
			common.LogError("批次處理中止",
				zap.Int("batch_start", start),
				zap.Int("batch_size", end-start),
				zap.Error(err),
			)
			continue
		}

		for _, r := range results {
			if r.IsSuccess() {
				succeeded++
			} else {
				failed++
			}
		}
	}

	common.LogInfo("批次正規化結束",
		zap.Int("total", len(recipes)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("aborted", aborted),
	)

	if aborted > 0 {
		os.Exit(1)
	}
}
