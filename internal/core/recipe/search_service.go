package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-normalizer/internal/core/cache"
	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrRecipeNotFound 查無此食譜
var ErrRecipeNotFound = errors.New("recipe not found")

// SearchResult 食譜搜尋結果頁
type SearchResult struct {
	Recipes []Recipe `json:"recipes"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Count   int      `json:"count"`
}

// SearchService 食譜搜尋協調器
// 過濾、評分、排序、分頁與結果緩存的組裝點
type SearchService struct {
	db          *gorm.DB
	cfg         *config.Config
	scoring     *ScoringService
	resultCache *cache.Service
}

// NewSearchService 建立搜尋服務，resultCache 可為 nil（不緩存）
func NewSearchService(db *gorm.DB, cfg *config.Config, resultCache *cache.Service) *SearchService {
	return &SearchService{
		db:          db,
		cfg:         cfg,
		scoring:     NewScoringService(cfg.Scoring),
		resultCache: resultCache,
	}
}

// Search 執行食譜搜尋，參數需已經過清洗與驗證
func (s *SearchService) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	key := cache.Fingerprint("search:recipes", params)

	var result SearchResult
	err := s.resultCache.Fetch(ctx, key, &result, func() (interface{}, error) {
		return s.search(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// search 實際查詢，不經過緩存
func (s *SearchService) search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	scope := s.db.WithContext(ctx).Model(&Recipe{})

	// 標題模糊比對（不分大小寫）
	if params.Title != "" {
		scope = scope.Where("LOWER(recipes.default_title) LIKE ?", "%"+strings.ToLower(params.Title)+"%")
	}

	// 食材過濾存在時套用評分轉換
	scored := false
	if len(params.Filters) > 0 {
		scope = s.scoring.Advanced(s.db.WithContext(ctx), scope, params.Filters)
		scored = true
	} else if len(params.IngredientIDs) > 0 {
		scope = s.scoring.Basic(s.db.WithContext(ctx), scope, params.IngredientIDs)
		scored = true
	}

	scope = s.applySort(scope, params.Sort, scored)

	offset := (params.Page - 1) * params.PerPage
	var recipes []Recipe
	if err := scope.Offset(offset).Limit(params.PerPage).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}

	common.LogDebug("食譜搜尋完成",
		zap.Int("count", len(recipes)),
		zap.Bool("scored", scored),
		zap.String("sort", params.Sort),
	)

	return &SearchResult{
		Recipes: recipes,
		Page:    params.Page,
		PerPage: params.PerPage,
		Count:   len(recipes),
	}, nil
}

// applySort 套用排序鍵
// 未知鍵與 cook_time 兩鍵落入 no-op，維持自然儲存順序
func (s *SearchService) applySort(scope *gorm.DB, sort string, scored bool) *gorm.DB {
	switch sort {
	case "title":
		return scope.Order("recipes.default_title ASC")
	case "title_desc":
		return scope.Order("recipes.default_title DESC")
	case "rating":
		return scope.Order("recipes.rating ASC")
	case "rating_desc":
		return scope.Order("recipes.rating DESC")
	case "prep_time":
		return scope.Order("recipes.prep_time ASC")
	case "prep_time_desc":
		return scope.Order("recipes.prep_time DESC")
	case "relevance":
		// 相關性排序只在評分轉換跑過之後有意義
		if scored {
			return scope.Order("relevance_score ASC").
				Order("match_percentage ASC").
				Order("total_ingredients DESC").
				Order("matched_ingredients ASC")
		}
		return scope
	case "relevance_desc":
		if scored {
			return scope.Order("relevance_score DESC").
				Order("match_percentage DESC").
				Order("total_ingredients ASC").
				Order("matched_ingredients DESC")
		}
		return scope
	default:
		return scope
	}
}

// RecipeDetail 單筆食譜連同其食材出現記錄
type RecipeDetail struct {
	Recipe
	Occurrences []RecipeIngredient `json:"ingredients"`
}

// FindByID 依主鍵查食譜，連同出現記錄
func (s *SearchService) FindByID(ctx context.Context, id uint) (*RecipeDetail, error) {
	var r Recipe
	err := s.db.WithContext(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	var occurrences []RecipeIngredient
	err = s.db.WithContext(ctx).
		Joins("JOIN recipe_recipe_ingredients rri ON rri.recipe_ingredient_id = recipe_ingredients.id").
		Where("rri.recipe_id = ?", r.ID).
		Order("recipe_ingredients.id ASC").
		Find(&occurrences).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe ingredients: %w", err)
	}

	return &RecipeDetail{Recipe: r, Occurrences: occurrences}, nil
}
