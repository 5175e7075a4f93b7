package recipe

import (
	"context"
	"testing"

	"recipe-normalizer/internal/infrastructure/config"
)

func titles(result *SearchResult) []string {
	out := make([]string, 0, len(result.Recipes))
	for _, r := range result.Recipes {
		out = append(out, r.DefaultTitle)
	}
	return out
}

func assertOrder(t *testing.T, result *SearchResult, want ...string) {
	t.Helper()
	got := titles(result)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSearchTitleFilter(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	seedRecipe(t, db, "Apple Pie", []seedIngredient{{name: "apple"}})
	seedRecipe(t, db, "Banana Bread", []seedIngredient{{name: "banana"}})

	svc := NewSearchService(db, cfg, nil)
	result, err := svc.Search(context.Background(), &SearchParams{Title: "apple", Page: 1, PerPage: 20})
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, result, "Apple Pie")
}

func TestSearchSortKeys(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()

	a := seedRecipe(t, db, "Alpha", nil)
	b := seedRecipe(t, db, "Beta", nil)
	db.Model(a).Updates(map[string]interface{}{"rating": 2.0, "prep_time": 30})
	db.Model(b).Updates(map[string]interface{}{"rating": 4.5, "prep_time": 10})

	svc := NewSearchService(db, cfg, nil)
	run := func(sort string) *SearchResult {
		t.Helper()
		result, err := svc.Search(context.Background(), &SearchParams{Sort: sort, Page: 1, PerPage: 20})
		if err != nil {
			t.Fatalf("sort %q: %v", sort, err)
		}
		return result
	}

	assertOrder(t, run("title"), "Alpha", "Beta")
	assertOrder(t, run("title_desc"), "Beta", "Alpha")
	assertOrder(t, run("rating"), "Alpha", "Beta")
	assertOrder(t, run("rating_desc"), "Beta", "Alpha")
	assertOrder(t, run("prep_time"), "Beta", "Alpha")
	assertOrder(t, run("prep_time_desc"), "Alpha", "Beta")
}

func TestSearchCookTimeSortIsNoOp(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()

	a := seedRecipe(t, db, "Zebra", nil)
	b := seedRecipe(t, db, "Aardvark", nil)
	db.Model(a).Update("cook_time", 90)
	db.Model(b).Update("cook_time", 5)

	svc := NewSearchService(db, cfg, nil)
	result, err := svc.Search(context.Background(), &SearchParams{Sort: "cook_time", Page: 1, PerPage: 20})
	if err != nil {
		t.Fatal(err)
	}
	// 保留為合法但不排序的鍵，維持自然儲存順序
	assertOrder(t, result, "Zebra", "Aardvark")
}

func TestSearchRelevanceTieBreakPrefersSmallerRecipe(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	// 加分全關，使相關性分數等於匹配百分比
	cfg.Scoring = config.ScoringConfig{SmallRecipeThreshold: 5, MidRecipeThreshold: 8}

	// 兩者皆 50%：Small 1/2，Large 2/4
	seedRecipe(t, db, "Small", []seedIngredient{{name: "egg"}, {name: "pepper"}})
	seedRecipe(t, db, "Large", []seedIngredient{
		{name: "egg"}, {name: "flour"}, {name: "water"}, {name: "oil"},
	})

	ids := []uint{ingredientID(t, db, "egg"), ingredientID(t, db, "flour")}
	svc := NewSearchService(db, cfg, nil)

	result, err := svc.Search(context.Background(), &SearchParams{
		IngredientIDs: ids, Sort: "relevance_desc", Page: 1, PerPage: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	// 分數相同時 total 小的排前面
	assertOrder(t, result, "Small", "Large")

	// 遞增排序時四個鍵全部反向
	result, err = svc.Search(context.Background(), &SearchParams{
		IngredientIDs: ids, Sort: "relevance", Page: 1, PerPage: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, result, "Large", "Small")
}

func TestSearchScoredResultsCarryDerivedFields(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	seedRecipe(t, db, "Pancakes", []seedIngredient{
		{name: "egg"}, {name: "flour"}, {name: "milk"},
	})

	ids := []uint{ingredientID(t, db, "egg"), ingredientID(t, db, "flour")}
	svc := NewSearchService(db, cfg, nil)
	result, err := svc.Search(context.Background(), &SearchParams{
		IngredientIDs: ids, Sort: "relevance_desc", Page: 1, PerPage: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Recipes) != 1 {
		t.Fatalf("count = %d, want 1", len(result.Recipes))
	}
	r := result.Recipes[0]
	if r.MatchedIngredients != 2 || r.TotalIngredients != 3 {
		t.Errorf("matched/total = %d/%d, want 2/3", r.MatchedIngredients, r.TotalIngredients)
	}
	if !approx(r.RelevanceScore, 96.67) {
		t.Errorf("relevance_score = %v, want 96.67", r.RelevanceScore)
	}
}

func TestSearchPagination(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	seedRecipe(t, db, "One", nil)
	seedRecipe(t, db, "Two", nil)
	seedRecipe(t, db, "Three", nil)

	svc := NewSearchService(db, cfg, nil)
	result, err := svc.Search(context.Background(), &SearchParams{
		Sort: "title", Page: 2, PerPage: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	// title 排序：One, Three, Two → 第二頁只剩 Two
	assertOrder(t, result, "Two")
	if result.Page != 2 || result.PerPage != 2 {
		t.Errorf("page info = %d/%d", result.Page, result.PerPage)
	}
}

func TestFindByID(t *testing.T) {
	db := newTestDB(t)
	cfg := config.Default()
	rec := seedRecipe(t, db, "Target", []seedIngredient{
		{name: "egg", quantity: floatPtr(2)},
		{name: "flour", quantity: floatPtr(1), unit: "cup"},
	})

	svc := NewSearchService(db, cfg, nil)
	got, err := svc.FindByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DefaultTitle != "Target" {
		t.Errorf("title = %q", got.DefaultTitle)
	}
	if len(got.Occurrences) != 2 {
		t.Errorf("occurrences = %d, want 2", len(got.Occurrences))
	}

	if _, err := svc.FindByID(context.Background(), 99999); err != ErrRecipeNotFound {
		t.Errorf("err = %v, want ErrRecipeNotFound", err)
	}
}
