package recipe

import (
	"fmt"
	"math"
	"testing"

	"recipe-normalizer/internal/infrastructure/config"

	"gorm.io/gorm"
)

func scoreBasic(t *testing.T, db *gorm.DB, ids []uint) []Recipe {
	t.Helper()
	svc := NewScoringService(config.Default().Scoring)
	var recipes []Recipe
	if err := svc.Basic(db, db.Model(&Recipe{}), ids).Find(&recipes).Error; err != nil {
		t.Fatalf("basic scoring: %v", err)
	}
	return recipes
}

func scoreAdvanced(t *testing.T, db *gorm.DB, filters []AdvancedFilter) []Recipe {
	t.Helper()
	svc := NewScoringService(config.Default().Scoring)
	var recipes []Recipe
	if err := svc.Advanced(db, db.Model(&Recipe{}), filters).Find(&recipes).Error; err != nil {
		t.Fatalf("advanced scoring: %v", err)
	}
	return recipes
}

func findScored(t *testing.T, recipes []Recipe, title string) *Recipe {
	t.Helper()
	for i := range recipes {
		if recipes[i].DefaultTitle == title {
			return &recipes[i]
		}
	}
	t.Fatalf("recipe %q not in scored results", title)
	return nil
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 0.01
}

func TestScoringAllMatchSmallRecipe(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "Pancakes", []seedIngredient{
		{name: "egg"}, {name: "flour"}, {name: "milk"},
	})

	ids := []uint{ingredientID(t, db, "egg"), ingredientID(t, db, "flour")}
	recipes := scoreBasic(t, db, ids)

	r := findScored(t, recipes, "Pancakes")
	if r.MatchedIngredients != 2 || r.TotalIngredients != 3 {
		t.Fatalf("matched/total = %d/%d, want 2/3", r.MatchedIngredients, r.TotalIngredients)
	}
	if !approx(r.MatchPercentage, 66.67) {
		t.Errorf("match_percentage = %v, want 66.67", r.MatchPercentage)
	}
	// 全匹配 +20，小食譜 +10
	if !approx(r.RelevanceScore, 96.67) {
		t.Errorf("relevance_score = %v, want 96.67", r.RelevanceScore)
	}
}

func TestScoringPartialMatchSmallRecipe(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "Custard", []seedIngredient{
		{name: "egg"}, {name: "milk"}, {name: "sugar"},
	})
	seedRecipe(t, db, "Bread", []seedIngredient{
		{name: "flour"}, {name: "water"}, {name: "yeast"},
	})

	ids := []uint{ingredientID(t, db, "egg"), ingredientID(t, db, "flour")}
	recipes := scoreBasic(t, db, ids)

	r := findScored(t, recipes, "Custard")
	if r.MatchedIngredients != 1 || r.TotalIngredients != 3 {
		t.Fatalf("matched/total = %d/%d, want 1/3", r.MatchedIngredients, r.TotalIngredients)
	}
	if !approx(r.MatchPercentage, 33.33) {
		t.Errorf("match_percentage = %v, want 33.33", r.MatchPercentage)
	}
	// 無全匹配加分，小食譜 +10
	if !approx(r.RelevanceScore, 43.33) {
		t.Errorf("relevance_score = %v, want 43.33", r.RelevanceScore)
	}
}

func TestScoringAllMatchLargeRecipe(t *testing.T) {
	db := newTestDB(t)
	ingredients := []seedIngredient{{name: "egg"}, {name: "flour"}}
	for i := 0; i < 9; i++ {
		ingredients = append(ingredients, seedIngredient{name: fmt.Sprintf("filler-%d", i)})
	}
	seedRecipe(t, db, "Casserole", ingredients)

	ids := []uint{ingredientID(t, db, "egg"), ingredientID(t, db, "flour")}
	recipes := scoreBasic(t, db, ids)

	r := findScored(t, recipes, "Casserole")
	if r.MatchedIngredients != 2 || r.TotalIngredients != 11 {
		t.Fatalf("matched/total = %d/%d, want 2/11", r.MatchedIngredients, r.TotalIngredients)
	}
	if !approx(r.MatchPercentage, 18.18) {
		t.Errorf("match_percentage = %v, want 18.18", r.MatchPercentage)
	}
	// 全匹配 +20，大食譜無尺寸加分
	if !approx(r.RelevanceScore, 38.18) {
		t.Errorf("relevance_score = %v, want 38.18", r.RelevanceScore)
	}
}

func TestScoringZeroMatchExcluded(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "Pancakes", []seedIngredient{{name: "egg"}, {name: "flour"}})
	seedRecipe(t, db, "Salad", []seedIngredient{{name: "lettuce"}, {name: "tomato"}})

	ids := []uint{ingredientID(t, db, "egg")}
	recipes := scoreBasic(t, db, ids)

	if len(recipes) != 1 {
		t.Fatalf("got %d recipes, want 1", len(recipes))
	}
	if recipes[0].DefaultTitle != "Pancakes" {
		t.Fatalf("got %q, want Pancakes", recipes[0].DefaultTitle)
	}
}

func TestScoringMidSizeBonus(t *testing.T) {
	db := newTestDB(t)
	ingredients := []seedIngredient{{name: "egg"}}
	for i := 0; i < 6; i++ {
		ingredients = append(ingredients, seedIngredient{name: fmt.Sprintf("extra-%d", i)})
	}
	// total = 7，落在中型門檻內
	seedRecipe(t, db, "Stew", ingredients)

	recipes := scoreBasic(t, db, []uint{ingredientID(t, db, "egg")})
	r := findScored(t, recipes, "Stew")
	if r.TotalIngredients != 7 {
		t.Fatalf("total = %d, want 7", r.TotalIngredients)
	}
	// pct 14.29 + 全匹配 20 + 中型 5
	if !approx(r.RelevanceScore, 39.29) {
		t.Errorf("relevance_score = %v, want 39.29", r.RelevanceScore)
	}
}

func TestAdvancedQuantityBoundary(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "Omelette", []seedIngredient{
		{name: "egg", quantity: floatPtr(2), unit: "unit"},
		{name: "butter", quantity: floatPtr(1), unit: "tbsp"},
	})
	eggID := ingredientID(t, db, "egg")

	// 數量上限為包含式比較
	recipes := scoreAdvanced(t, db, []AdvancedFilter{{IngredientID: eggID, Quantity: floatPtr(2)}})
	if len(recipes) != 1 {
		t.Fatalf("quantity == bound: got %d recipes, want 1", len(recipes))
	}

	// 出現數量超過上限時不匹配
	recipes = scoreAdvanced(t, db, []AdvancedFilter{{IngredientID: eggID, Quantity: floatPtr(1)}})
	if len(recipes) != 0 {
		t.Fatalf("quantity above bound: got %d recipes, want 0", len(recipes))
	}
}

func TestAdvancedUnitExactMatch(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "Cake", []seedIngredient{
		{name: "flour", quantity: floatPtr(2), unit: "cup"},
	})
	flourID := ingredientID(t, db, "flour")

	recipes := scoreAdvanced(t, db, []AdvancedFilter{{IngredientID: flourID, Unit: "cup"}})
	if len(recipes) != 1 {
		t.Fatalf("matching unit: got %d recipes, want 1", len(recipes))
	}

	recipes = scoreAdvanced(t, db, []AdvancedFilter{{IngredientID: flourID, Unit: "gram"}})
	if len(recipes) != 0 {
		t.Fatalf("wrong unit: got %d recipes, want 0", len(recipes))
	}
}

func TestAdvancedFiltersAreORed(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "Toast", []seedIngredient{{name: "bread"}, {name: "butter"}})

	filters := []AdvancedFilter{
		{IngredientID: ingredientID(t, db, "bread")},
		{IngredientID: 99999}, // 不存在的食材
	}
	recipes := scoreAdvanced(t, db, filters)

	r := findScored(t, recipes, "Toast")
	if r.MatchedIngredients != 1 {
		t.Fatalf("matched = %d, want 1", r.MatchedIngredients)
	}
	// 只滿足兩個條件之一，不觸發全匹配加分：pct 50 + 小食譜 10
	if !approx(r.RelevanceScore, 60.0) {
		t.Errorf("relevance_score = %v, want 60.0", r.RelevanceScore)
	}
}

func TestAdvancedDuplicateFilterEntriesBlockAllMatchBonus(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "Scramble", []seedIngredient{{name: "egg"}})
	eggID := ingredientID(t, db, "egg")

	// 重複條目使門檻升到 2，matched 只有 1，全匹配加分不觸發
	filters := []AdvancedFilter{{IngredientID: eggID}, {IngredientID: eggID}}
	recipes := scoreAdvanced(t, db, filters)

	r := findScored(t, recipes, "Scramble")
	if r.MatchedIngredients != 1 {
		t.Fatalf("matched = %d, want 1", r.MatchedIngredients)
	}
	// pct 100 + 小食譜 10，無全匹配 20
	if !approx(r.RelevanceScore, 110.0) {
		t.Errorf("relevance_score = %v, want 110.0", r.RelevanceScore)
	}
}
