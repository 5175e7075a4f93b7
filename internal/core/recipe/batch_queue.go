package recipe

import (
	"context"
	"sync"
	"sync/atomic"

	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"

	"go.uber.org/zap"
)

// BatchRequest 佇列中的一個批次
type BatchRequest struct {
	Context context.Context
	Batch   []RawRecipe
	Result  chan BatchResult
}

// BatchResult 批次處理結果
type BatchResult struct {
	Results []common.Result
	Error   error
}

// QueueStatus 佇列狀態
type QueueStatus struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
}

// BatchQueue 批次佇列管理器
// 正規化快取沒有內部鎖，批次必須經由單一協調器序列化執行，
// 因此永遠只起一個 worker
type BatchQueue struct {
	config     *config.Config
	normalizer *NormalizeService
	queue      chan *BatchRequest
	done       chan struct{}
	processed  int64
	closeOnce  sync.Once
}

// NewBatchQueue 創建批次佇列
func NewBatchQueue(cfg *config.Config, normalizer *NormalizeService) *BatchQueue {
	return &BatchQueue{
		config:     cfg,
		normalizer: normalizer,
		queue:      make(chan *BatchRequest, cfg.Queue.MaxSize),
		done:       make(chan struct{}),
	}
}

// Start 啟動單一協調器 worker
func (q *BatchQueue) Start() {
	go q.run()
}

// run 依序處理佇列中的批次
func (q *BatchQueue) run() {
	for {
		select {
		case req, ok := <-q.queue:
			if !ok {
				return
			}
			results, err := q.normalizer.ProcessBatch(req.Context, req.Batch)
			atomic.AddInt64(&q.processed, 1)
			req.Result <- BatchResult{Results: results, Error: err}
		case <-q.done:
			return
		}
	}
}

// Enqueue 將批次加入佇列
func (q *BatchQueue) Enqueue(ctx context.Context, batch []RawRecipe) (chan BatchResult, error) {
	// 檢查佇列容量
	if len(q.queue) >= q.config.Queue.MaxSize {
		return nil, common.ErrQueueFull
	}

	req := BatchRequest{
		Context: ctx,
		Batch:   batch,
		Result:  make(chan BatchResult, 1),
	}

	select {
	case q.queue <- &req:
		common.LogInfo("批次已排入佇列",
			zap.Int("batch_size", len(batch)),
			zap.Int("queue_length", len(q.queue)),
			zap.Int("max_queue_size", q.config.Queue.MaxSize),
		)
		return req.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, common.ErrServiceUnavailable
	}
}

// Status 取得佇列狀態
func (q *BatchQueue) Status() *QueueStatus {
	return &QueueStatus{
		QueueLength:    len(q.queue),
		ProcessedCount: int(atomic.LoadInt64(&q.processed)),
		MaxQueueSize:   q.config.Queue.MaxSize,
	}
}

// Close 關閉佇列
func (q *BatchQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
