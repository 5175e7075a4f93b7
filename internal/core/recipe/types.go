package recipe

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxTimeMinutes 備料／烹煮時間上限（分鐘）
	MaxTimeMinutes = 1440
	// MaxRating 評分上限
	MaxRating = 5.0
	// DefaultUnit 單位缺漏時的哨兵值
	DefaultUnit = "unit"
)

// Recipe 食譜
type Recipe struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DefaultTitle string    `gorm:"uniqueIndex;not null" json:"title"`
	PrepTime     int       `gorm:"not null;default:0;index" json:"prep_time"`
	CookTime     int       `gorm:"not null;default:0;index" json:"cook_time"`
	Rating       float64   `gorm:"not null;default:0;index" json:"rating"`
	Author       string    `json:"author,omitempty"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`

	// 評分查詢產生的暫態欄位，不落地
	MatchedIngredients int     `gorm:"column:matched_ingredients;->;-:migration" json:"matched_ingredients,omitempty"`
	TotalIngredients   int     `gorm:"column:total_ingredients;->;-:migration" json:"total_ingredients,omitempty"`
	MatchPercentage    float64 `gorm:"column:match_percentage;->;-:migration" json:"match_percentage,omitempty"`
	RelevanceScore     float64 `gorm:"column:relevance_score;->;-:migration" json:"relevance_score,omitempty"`
}

// Ingredient 標準化食材
type Ingredient struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DefaultName string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// RecipeIngredient 食材出現記錄：一筆食譜原始文字行對應一個標準化食材
type RecipeIngredient struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	DefaultName     string     `gorm:"uniqueIndex;not null" json:"description"`
	DefaultQuantity string     `json:"raw_quantity,omitempty"`
	QuantityValue   *float64   `gorm:"type:decimal(8,2)" json:"quantity,omitempty"`
	Unit            string     `gorm:"not null;default:unit" json:"unit"`
	IngredientID    uint       `gorm:"not null;index" json:"ingredient_id"`
	Ingredient      Ingredient `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time  `json:"-"`
	UpdatedAt       time.Time  `json:"-"`
}

// RecipeRecipeIngredient 食譜與食材出現記錄的關聯，(recipe, occurrence) 唯一
type RecipeRecipeIngredient struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	RecipeID           uint             `gorm:"not null;uniqueIndex:idx_rri_recipe_occurrence,priority:1" json:"recipe_id"`
	RecipeIngredientID uint             `gorm:"not null;uniqueIndex:idx_rri_recipe_occurrence,priority:2;index" json:"recipe_ingredient_id"`
	Recipe             Recipe           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RecipeIngredient   RecipeIngredient `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt          time.Time        `json:"-"`
	UpdatedAt          time.Time        `json:"-"`
}

// RawRecipe 來自 JSON feed 的原始食譜
// 數值欄位在來源資料中可能是數字或字串，統一以 interface{} 承接後再清洗
type RawRecipe struct {
	Title       string      `json:"title"`
	Ingredients []string    `json:"ingredients"`
	PrepTime    interface{} `json:"prep_time"`
	CookTime    interface{} `json:"cook_time"`
	Ratings     interface{} `json:"ratings"`
	Author      string      `json:"author"`
	Image       string      `json:"image"`
}

// Valid 檢查原始食譜是否具備標題與非空食材清單
func (r *RawRecipe) Valid() bool {
	if r == nil {
		return false
	}
	if strings.TrimSpace(r.Title) == "" {
		return false
	}
	return len(r.Ingredients) > 0
}

// SanitizeTime 清洗時間欄位，夾限在 [0, 1440] 分鐘
func SanitizeTime(value interface{}) int {
	v := int(toFloat(value))
	if v < 0 {
		return 0
	}
	if v > MaxTimeMinutes {
		return MaxTimeMinutes
	}
	return v
}

// SanitizeRating 清洗評分欄位，夾限在 [0.0, 5.0]
func SanitizeRating(value interface{}) float64 {
	v := toFloat(value)
	if v < 0 {
		return 0.0
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}

// toFloat 盡力把來源值轉成數字，失敗時回 0
func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
