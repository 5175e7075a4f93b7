package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Service 搜尋結果緩存服務
// 緩存只是優化，不是正確性依賴：Redis 不可用時直接計算
type Service struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewService 創建緩存服務
func NewService(cfg *config.CacheConfig, redisCfg *config.RedisConfig) (*Service, error) {
	if !cfg.Enabled {
		return &Service{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		config: cfg,
	}, nil
}

// Fingerprint 由任意參數組產生確定性緩存鍵
func Fingerprint(prefix string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// 序列化失敗時退回前綴，等同直接計算
		return prefix
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Fetch 取出緩存，未命中或出錯時以 compute 計算並回填
// 緩存讀寫錯誤只記錄不傳播
func (s *Service) Fetch(ctx context.Context, key string, dest interface{}, compute func() (interface{}, error)) error {
	if s == nil || !s.config.Enabled || s.client == nil {
		result, err := compute()
		if err != nil {
			return err
		}
		return assign(result, dest)
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(data, dest); unmarshalErr == nil {
			common.LogCacheHit("search", key)
			return nil
		}
		// 緩存內容損壞，當作未命中
		common.LogWarn("緩存內容無法解析", zap.String("key", key))
	} else if err != redis.Nil {
		common.LogWarn("緩存讀取失敗，改為直接計算",
			zap.String("key", key),
			zap.Error(err),
		)
	} else {
		common.LogCacheMiss("search", key)
	}

	result, err := compute()
	if err != nil {
		return err
	}

	if payload, marshalErr := json.Marshal(result); marshalErr == nil {
		if setErr := s.client.Set(ctx, key, payload, s.config.TTL).Err(); setErr != nil {
			common.LogWarn("緩存寫入失敗", zap.String("key", key), zap.Error(setErr))
		}
	}

	return assign(result, dest)
}

// Invalidate 刪除指定緩存鍵
func (s *Service) Invalidate(ctx context.Context, keys ...string) error {
	if s == nil || !s.config.Enabled || s.client == nil || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close 關閉連線
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// assign 把計算結果塞回呼叫方的目的地，走 JSON 以對齊緩存命中路徑
func assign(result, dest interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return json.Unmarshal(data, dest)
}
