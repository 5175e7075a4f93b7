package recipe

import (
	"fmt"
	"strings"

	"recipe-normalizer/internal/pkg/common"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Cache 批次內的正規化查找表
// 只允許單一寫入者（批次協調器）存取，因此不加鎖
type Cache struct {
	ingredientIDs map[string]uint     // 小寫標準化名稱 -> ingredient id
	occurrences   map[string]struct{} // "原始行_食材ID" -> 已見過
	hits          int64
	misses        int64
}

// NewCache 建立空的查找表
func NewCache() *Cache {
	return &Cache{
		ingredientIDs: make(map[string]uint),
		occurrences:   make(map[string]struct{}),
	}
}

// CanonicalName 名稱正規化：修剪、轉小寫、單數化
func CanonicalName(name string) string {
	return inflection.Singular(strings.ToLower(strings.TrimSpace(name)))
}

// OccurrenceKey 出現記錄的快取鍵：原始行與食材 ID 的組合
func OccurrenceKey(rawName string, ingredientID uint) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(strings.TrimSpace(rawName)), ingredientID)
}

// Preload 從資料庫載入既有食材，批次開始前呼叫一次
func (c *Cache) Preload(db *gorm.DB) error {
	var ingredients []Ingredient
	if err := db.Select("id", "default_name").Find(&ingredients).Error; err != nil {
		return fmt.Errorf("failed to preload ingredients: %w", err)
	}

	c.CacheIngredients(ingredients)

	common.LogDebug("食材快取載入完成", zap.Int("count", len(ingredients)))
	return nil
}

// CacheIngredients 把食材寫入查找表
// 儲存名稱保留原始大小寫與單複數，鍵一律取正規化形
func (c *Cache) CacheIngredients(ingredients []Ingredient) {
	for _, ing := range ingredients {
		c.ingredientIDs[CanonicalName(ing.DefaultName)] = ing.ID
	}
}

// IngredientID 以名稱查食材 ID，查詢前先正規化，不分大小寫
func (c *Cache) IngredientID(name string) (uint, bool) {
	canonical := CanonicalName(name)
	id, ok := c.ingredientIDs[canonical]
	if ok {
		c.hits++
		common.LogCacheHit("ingredient", canonical)
	} else {
		c.misses++
		common.LogCacheMiss("ingredient", canonical)
	}
	return id, ok
}

// OccurrenceSeen 查詢出現記錄是否已存在（資料庫既有或批次內已排入）
func (c *Cache) OccurrenceSeen(key string) bool {
	_, ok := c.occurrences[key]
	return ok
}

// MarkOccurrence 標記出現記錄已見過，避免批次內重複排入
func (c *Cache) MarkOccurrence(key string) {
	c.occurrences[key] = struct{}{}
}

// PreloadOccurrences 載入既有出現記錄的鍵
func (c *Cache) PreloadOccurrences(db *gorm.DB) error {
	var rows []RecipeIngredient
	if err := db.Select("id", "default_name", "ingredient_id").Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to preload recipe ingredients: %w", err)
	}

	for _, row := range rows {
		c.MarkOccurrence(OccurrenceKey(row.DefaultName, row.IngredientID))
	}

	common.LogDebug("出現記錄快取載入完成", zap.Int("count", len(rows)))
	return nil
}

// Stats 回傳命中統計
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits, c.misses
}

// Size 查找表目前的條目數
func (c *Cache) Size() int {
	return len(c.ingredientIDs)
}

// Clear 清空查找表與統計
func (c *Cache) Clear() {
	c.ingredientIDs = make(map[string]uint)
	c.occurrences = make(map[string]struct{})
	c.hits = 0
	c.misses = 0
}
