package recipe

import (
	"fmt"
	"strings"

	"recipe-normalizer/internal/infrastructure/config"

	"gorm.io/gorm"
)

// ScoringService 相關性評分引擎
// 把食譜查詢範圍轉換成帶 matched / total / match_percentage / relevance_score
// 欄位的具名中間結果，供後續排序使用
type ScoringService struct {
	cfg config.ScoringConfig
}

// NewScoringService 建立評分引擎
func NewScoringService(cfg config.ScoringConfig) *ScoringService {
	return &ScoringService{cfg: cfg}
}

// Basic 基本模式：以食材 ID 集合評分
// 條件集合需已清洗（去重、去零）
func (s *ScoringService) Basic(db *gorm.DB, scope *gorm.DB, ids []uint) *gorm.DB {
	matchedJoin := "LEFT JOIN recipe_ingredients matched_ri ON matched_ri.id = rri.recipe_ingredient_id AND matched_ri.ingredient_id IN ?"
	return s.score(db, scope, matchedJoin, []interface{}{ids}, len(ids))
}

// Advanced 進階模式：以有序過濾條件清單評分
// 條件之間 OR，條件內 AND；數量比較為包含式（<=），單位為精確比對
// 全匹配加分門檻取條件「筆數」，重複的食材 ID 不去重
func (s *ScoringService) Advanced(db *gorm.DB, scope *gorm.DB, filters []AdvancedFilter) *gorm.DB {
	conditions := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters)*3)

	for _, f := range filters {
		parts := []string{"matched_ri.ingredient_id = ?"}
		args = append(args, f.IngredientID)

		if f.Quantity != nil {
			parts = append(parts, "matched_ri.quantity_value <= ?")
			args = append(args, *f.Quantity)
		}
		if f.Unit != "" {
			parts = append(parts, "matched_ri.unit = ?")
			args = append(args, f.Unit)
		}

		conditions = append(conditions, "("+strings.Join(parts, " AND ")+")")
	}

	matchedJoin := fmt.Sprintf(
		"LEFT JOIN recipe_ingredients matched_ri ON matched_ri.id = rri.recipe_ingredient_id AND (%s)",
		strings.Join(conditions, " OR "),
	)
	return s.score(db, scope, matchedJoin, args, len(filters))
}

// score 共用評分查詢
// matched / total 以 DISTINCT ingredient id 計數；matched = 0 的食譜排除
func (s *ScoringService) score(db *gorm.DB, scope *gorm.DB, matchedJoin string, matchedArgs []interface{}, criteriaCount int) *gorm.DB {
	const pctExpr = "ROUND(COUNT(DISTINCT matched_ri.ingredient_id) * 100.0 / NULLIF(COUNT(DISTINCT all_ri.ingredient_id), 0), 2)"

	selectExpr := `recipes.*,
COUNT(DISTINCT matched_ri.ingredient_id) AS matched_ingredients,
COUNT(DISTINCT all_ri.ingredient_id) AS total_ingredients,
` + pctExpr + ` AS match_percentage,
` + pctExpr + `
 + CASE WHEN COUNT(DISTINCT matched_ri.ingredient_id) = ? THEN ? ELSE 0 END
 + CASE WHEN COUNT(DISTINCT all_ri.ingredient_id) <= ? THEN ?
        WHEN COUNT(DISTINCT all_ri.ingredient_id) <= ? THEN ?
        ELSE 0 END AS relevance_score`

	selectArgs := []interface{}{
		criteriaCount, s.cfg.BonusAllMatch,
		s.cfg.SmallRecipeThreshold, s.cfg.BonusSmallRecipe,
		s.cfg.MidRecipeThreshold, s.cfg.BonusMidRecipe,
	}

	sub := scope.
		Select(selectExpr, selectArgs...).
		Joins("LEFT JOIN recipe_recipe_ingredients rri ON rri.recipe_id = recipes.id").
		Joins(matchedJoin, matchedArgs...).
		Joins("LEFT JOIN recipe_ingredients all_ri ON all_ri.id = rri.recipe_ingredient_id").
		Group("recipes.id").
		Having("COUNT(DISTINCT matched_ri.ingredient_id) > 0")

	// 以具名子查詢落地衍生欄位，排序階段才能引用
	return db.Table("(?) AS recipes", sub).Select("recipes.*")
}
