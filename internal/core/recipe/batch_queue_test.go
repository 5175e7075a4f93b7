package recipe

import (
	"context"
	"testing"
	"time"

	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"
)

func TestBatchQueueProcessesEnqueuedBatch(t *testing.T) {
	svc, db := newNormalizer(t)
	cfg := config.Default()

	q := NewBatchQueue(cfg, svc)
	q.Start()
	defer q.Close()

	resultCh, err := q.Enqueue(context.Background(), []RawRecipe{{
		Title:       "Pancakes",
		Ingredients: []string{"2 cups flour", "2 eggs"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-resultCh:
		if res.Error != nil {
			t.Fatal(res.Error)
		}
		if len(res.Results) != 1 || !res.Results[0].IsSuccess() {
			t.Fatalf("results = %+v", res.Results)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch result")
	}

	if n := countRows(t, db, &Recipe{}); n != 1 {
		t.Errorf("recipes = %d, want 1", n)
	}
	if q.Status().ProcessedCount != 1 {
		t.Errorf("processed = %d, want 1", q.Status().ProcessedCount)
	}
}

func TestBatchQueueFullRejectsEnqueue(t *testing.T) {
	svc, _ := newNormalizer(t)
	cfg := config.Default()
	cfg.Queue.MaxSize = 1

	// 不啟動 worker，佇列塞滿後下一個批次應被拒絕
	q := NewBatchQueue(cfg, svc)
	defer q.Close()

	if _, err := q.Enqueue(context.Background(), []RawRecipe{{Title: "A", Ingredients: []string{"1 egg"}}}); err != nil {
		t.Fatal(err)
	}
	_, err := q.Enqueue(context.Background(), []RawRecipe{{Title: "B", Ingredients: []string{"1 egg"}}})
	if err != common.ErrQueueFull {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestBatchQueueCloseIsIdempotent(t *testing.T) {
	svc, _ := newNormalizer(t)
	q := NewBatchQueue(config.Default(), svc)
	q.Start()

	q.Close()
	q.Close()
}
