package recipe

import (
	"regexp"
	"strconv"
	"strings"

	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"
)

// AdvancedFilter 進階搜尋的單一過濾條件
// Quantity 與 Unit 皆為可選；條件之間為 OR，條件內為 AND
type AdvancedFilter struct {
	IngredientID uint     `json:"ingredient_id" binding:"required"`
	Quantity     *float64 `json:"quantity,omitempty"`
	Unit         string   `json:"unit,omitempty"`
}

// SearchParams 食譜搜尋參數（已清洗）
type SearchParams struct {
	Title         string           `json:"title,omitempty"`
	IngredientIDs []uint           `json:"ingredient_ids,omitempty"`
	Filters       []AdvancedFilter `json:"filters,omitempty"`
	Sort          string           `json:"sort,omitempty"`
	Page          int              `json:"page"`
	PerPage       int              `json:"per_page"`
}

// HasIngredientFilter 是否帶有任何食材過濾條件
func (p *SearchParams) HasIngredientFilter() bool {
	return len(p.Filters) > 0 || len(p.IngredientIDs) > 0
}

// IngredientSearchParams 食材搜尋參數（已清洗）
type IngredientSearchParams struct {
	Name    string `json:"name,omitempty"`
	IDs     []uint `json:"ids,omitempty"`
	Sort    string `json:"sort,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// 拒絕可能帶入注入或標記的字元
var forbiddenCharsRe = regexp.MustCompile(`[<>"'&]`)

// recipeSortKeys 食譜排序白名單
// cook_time 兩鍵刻意保留：合法但不產生排序
var recipeSortKeys = map[string]struct{}{
	"title": {}, "title_desc": {},
	"rating": {}, "rating_desc": {},
	"prep_time": {}, "prep_time_desc": {},
	"cook_time": {}, "cook_time_desc": {},
	"relevance": {}, "relevance_desc": {},
}

// ingredientSortKeys 食材排序白名單
var ingredientSortKeys = map[string]struct{}{
	"title": {}, "title_desc": {},
	"name": {}, "name_desc": {},
}

// FilterSanitizer 過濾參數清洗器
type FilterSanitizer struct {
	cfg *config.Config
}

// NewFilterSanitizer 建立清洗器
func NewFilterSanitizer(cfg *config.Config) *FilterSanitizer {
	return &FilterSanitizer{cfg: cfg}
}

// SanitizeIDs 把任意字串 ID 清單轉成去重、去零的正整數清單
// 無法轉換或為零的值靜默丟棄
func (s *FilterSanitizer) SanitizeIDs(raw []string) []uint {
	if len(raw) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(raw))
	ids := make([]uint, 0, len(raw))
	for _, v := range raw {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || n == 0 {
			continue
		}
		id := uint(n)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// SanitizeUintIDs 對已是數值的 ID 清單做去重與去零
func (s *FilterSanitizer) SanitizeUintIDs(raw []uint) []uint {
	if len(raw) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(raw))
	ids := make([]uint, 0, len(raw))
	for _, id := range raw {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// SanitizePagination 夾限分頁參數
func (s *FilterSanitizer) SanitizePagination(page, perPage int) (int, int) {
	p := s.cfg.Pagination
	if page < p.DefaultPage {
		page = p.DefaultPage
	}
	if perPage <= 0 {
		perPage = p.DefaultPerPage
	}
	if perPage > p.MaxPerPage {
		perPage = p.MaxPerPage
	}
	return page, perPage
}

// SanitizeRecipeParams 清洗食譜搜尋參數
func (s *FilterSanitizer) SanitizeRecipeParams(params *SearchParams) *SearchParams {
	out := &SearchParams{
		Title:         strings.TrimSpace(params.Title),
		IngredientIDs: s.SanitizeUintIDs(params.IngredientIDs),
		Sort:          strings.TrimSpace(params.Sort),
	}
	out.Page, out.PerPage = s.SanitizePagination(params.Page, params.PerPage)

	// 進階條件：去零 ID、去掉非正數量；條件順序與重複保留
	for _, f := range params.Filters {
		if f.IngredientID == 0 {
			continue
		}
		clean := AdvancedFilter{IngredientID: f.IngredientID, Unit: strings.TrimSpace(f.Unit)}
		if f.Quantity != nil && *f.Quantity > 0 {
			q := *f.Quantity
			clean.Quantity = &q
		}
		out.Filters = append(out.Filters, clean)
	}

	// 進階條件存在時以進階為準
	if len(out.Filters) > 0 {
		out.IngredientIDs = nil
	}

	return out
}

// SanitizeIngredientParams 清洗食材搜尋參數
func (s *FilterSanitizer) SanitizeIngredientParams(params *IngredientSearchParams) *IngredientSearchParams {
	out := &IngredientSearchParams{
		Name: strings.TrimSpace(params.Name),
		IDs:  s.SanitizeUintIDs(params.IDs),
		Sort: strings.TrimSpace(params.Sort),
	}
	out.Page, out.PerPage = s.SanitizePagination(params.Page, params.PerPage)
	return out
}

// ValidateRecipeParams 驗證食譜搜尋參數
func (s *FilterSanitizer) ValidateRecipeParams(params *SearchParams) error {
	v := s.cfg.Validation

	if len(params.Title) > v.TitleMaxLength {
		return common.NewValidationError("title: title too long")
	}
	if forbiddenCharsRe.MatchString(params.Title) {
		return common.NewValidationError("title: title contains forbidden characters")
	}
	if len(params.IngredientIDs) > v.MaxIngredientIDs {
		return common.NewValidationError("ingredient_ids: too many ingredient ids")
	}
	if len(params.Filters) > v.MaxIngredientIDs {
		return common.NewValidationError("filters: too many filters")
	}
	for _, f := range params.Filters {
		if len(f.Unit) > 50 {
			return common.NewValidationError("filters: unit too long")
		}
		if f.Quantity != nil && *f.Quantity <= 0 {
			return common.NewValidationError("filters: quantity must be positive")
		}
	}
	if params.Sort != "" {
		if _, ok := recipeSortKeys[params.Sort]; !ok {
			return common.NewValidationError("sort: unknown sort key")
		}
	}
	return nil
}

// ValidateIngredientParams 驗證食材搜尋參數
func (s *FilterSanitizer) ValidateIngredientParams(params *IngredientSearchParams) error {
	v := s.cfg.Validation

	if len(params.Name) > v.NameMaxLength {
		return common.NewValidationError("name: name too long")
	}
	if forbiddenCharsRe.MatchString(params.Name) {
		return common.NewValidationError("name: name contains forbidden characters")
	}
	if len(params.IDs) > v.MaxIngredientIDs {
		return common.NewValidationError("ids: too many ids")
	}
	if params.Sort != "" {
		if _, ok := ingredientSortKeys[params.Sort]; !ok {
			return common.NewValidationError("sort: unknown sort key")
		}
	}
	return nil
}
