package recipe

import (
	"context"
	"fmt"
	"strings"

	"recipe-normalizer/internal/core/cache"
	"recipe-normalizer/internal/infrastructure/config"

	"gorm.io/gorm"
)

// IngredientResult 食材搜尋結果頁
type IngredientResult struct {
	Ingredients []IngredientView `json:"ingredients"`
	Page        int              `json:"page"`
	PerPage     int              `json:"per_page"`
	Count       int              `json:"count"`
}

// IngredientView 食材連同出現記錄彙總
type IngredientView struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Quantities []string `json:"quantities,omitempty"`
	Units      []string `json:"units,omitempty"`
}

// IngredientService 食材搜尋服務
type IngredientService struct {
	db          *gorm.DB
	cfg         *config.Config
	resultCache *cache.Service
}

// NewIngredientService 建立食材搜尋服務
func NewIngredientService(db *gorm.DB, cfg *config.Config, resultCache *cache.Service) *IngredientService {
	return &IngredientService{db: db, cfg: cfg, resultCache: resultCache}
}

// Search 執行食材搜尋，參數需已經過清洗與驗證
func (s *IngredientService) Search(ctx context.Context, params *IngredientSearchParams) (*IngredientResult, error) {
	key := cache.Fingerprint("search:ingredients", params)

	var result IngredientResult
	err := s.resultCache.Fetch(ctx, key, &result, func() (interface{}, error) {
		return s.search(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *IngredientService) search(ctx context.Context, params *IngredientSearchParams) (*IngredientResult, error) {
	scope := s.db.WithContext(ctx).Model(&Ingredient{})

	if params.Name != "" {
		scope = scope.Where("LOWER(default_name) LIKE ?", "%"+strings.ToLower(params.Name)+"%")
	}
	if len(params.IDs) > 0 {
		scope = scope.Where("id IN ?", params.IDs)
	}

	scope = s.applySort(scope, params.Sort)

	offset := (params.Page - 1) * params.PerPage
	var ingredients []Ingredient
	if err := scope.Offset(offset).Limit(params.PerPage).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}

	views, err := s.attachOccurrences(ctx, ingredients)
	if err != nil {
		return nil, err
	}

	return &IngredientResult{
		Ingredients: views,
		Page:        params.Page,
		PerPage:     params.PerPage,
		Count:       len(views),
	}, nil
}

// applySort 套用排序；預設以名稱長度遞增，短而泛用的名稱排前面
func (s *IngredientService) applySort(scope *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "title", "name":
		return scope.Order("default_name ASC")
	case "title_desc", "name_desc":
		return scope.Order("default_name DESC")
	default:
		return scope.Order("LENGTH(default_name) ASC")
	}
}

// attachOccurrences 彙總每個食材的出現記錄數量與單位（去重，保留首見順序）
func (s *IngredientService) attachOccurrences(ctx context.Context, ingredients []Ingredient) ([]IngredientView, error) {
	views := make([]IngredientView, 0, len(ingredients))
	if len(ingredients) == 0 {
		return views, nil
	}

	ids := make([]uint, 0, len(ingredients))
	for _, ing := range ingredients {
		ids = append(ids, ing.ID)
	}

	var occurrences []RecipeIngredient
	err := s.db.WithContext(ctx).
		Select("ingredient_id", "default_quantity", "unit").
		Where("ingredient_id IN ?", ids).
		Order("id ASC").
		Find(&occurrences).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load occurrences: %w", err)
	}

	quantities := make(map[uint][]string, len(ingredients))
	units := make(map[uint][]string, len(ingredients))
	seenQty := make(map[string]struct{})
	seenUnit := make(map[string]struct{})
	for _, occ := range occurrences {
		if occ.DefaultQuantity != "" {
			k := fmt.Sprintf("%d|%s", occ.IngredientID, occ.DefaultQuantity)
			if _, dup := seenQty[k]; !dup {
				seenQty[k] = struct{}{}
				quantities[occ.IngredientID] = append(quantities[occ.IngredientID], occ.DefaultQuantity)
			}
		}
		if occ.Unit != "" {
			k := fmt.Sprintf("%d|%s", occ.IngredientID, occ.Unit)
			if _, dup := seenUnit[k]; !dup {
				seenUnit[k] = struct{}{}
				units[occ.IngredientID] = append(units[occ.IngredientID], occ.Unit)
			}
		}
	}

	for _, ing := range ingredients {
		views = append(views, IngredientView{
			ID:         ing.ID,
			Name:       ing.DefaultName,
			Quantities: quantities[ing.ID],
			Units:      units[ing.ID],
		})
	}
	return views, nil
}
