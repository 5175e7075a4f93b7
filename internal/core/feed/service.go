package feed

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"recipe-normalizer/internal/core/recipe"
	"recipe-normalizer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Service 食譜 feed 抓取服務
// 支援 JSON 陣列與 NDJSON（每行一筆）兩種格式，來源可為 URL 或本地檔案
type Service struct {
	client *resty.Client
}

// NewService 創建 feed 服務
func NewService() *Service {
	client := resty.New().
		SetTimeout(60 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Service{client: client}
}

// FetchURL 從遠端 URL 抓取原始食譜
func (s *Service) FetchURL(ctx context.Context, url string) ([]recipe.RawRecipe, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	recipes, err := Decode(resp.Body())
	if err != nil {
		return nil, err
	}

	common.LogInfo("feed 抓取完成",
		zap.String("url", url),
		zap.Int("count", len(recipes)),
	)
	return recipes, nil
}

// FetchFile 從本地檔案讀取原始食譜
func (s *Service) FetchFile(path string) ([]recipe.RawRecipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}

	recipes, err := Decode(data)
	if err != nil {
		return nil, err
	}

	common.LogInfo("feed 檔案讀取完成",
		zap.String("path", path),
		zap.Int("count", len(recipes)),
	)
	return recipes, nil
}

// Decode 解析 feed 內容
// 先嘗試 JSON 陣列，失敗時退回 NDJSON 逐行解析
func Decode(data []byte) ([]recipe.RawRecipe, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("empty feed")
	}

	if strings.HasPrefix(trimmed, "[") {
		var recipes []recipe.RawRecipe
		if err := common.ParseJSON(trimmed, &recipes); err != nil {
			return nil, fmt.Errorf("failed to parse feed array: %w", err)
		}
		return recipes, nil
	}

	// NDJSON：每行一筆，壞行記錄後跳過
	var recipes []recipe.RawRecipe
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r recipe.RawRecipe
		if err := common.ParseJSON(line, &r); err != nil {
			common.LogWarn("feed 行解析失敗，跳過",
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		recipes = append(recipes, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}
	if len(recipes) == 0 {
		return nil, fmt.Errorf("no parsable recipes in feed")
	}
	return recipes, nil
}
