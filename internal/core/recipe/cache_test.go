package recipe

import (
	"testing"
)

func TestCacheCaseInsensitiveLookup(t *testing.T) {
	c := NewCache()
	c.CacheIngredients([]Ingredient{{ID: 7, DefaultName: "Tomato"}})

	for _, query := range []string{"tomato", "TOMATO", "ToMaTo", "Tomato"} {
		id, ok := c.IngredientID(query)
		if !ok {
			t.Fatalf("IngredientID(%q): miss", query)
		}
		if id != 7 {
			t.Fatalf("IngredientID(%q) = %d, want 7", query, id)
		}
	}
}

func TestCacheSingularizedLookup(t *testing.T) {
	c := NewCache()
	// 儲存名稱保留複數，鍵取單數形
	c.CacheIngredients([]Ingredient{{ID: 3, DefaultName: "Eggs"}})

	id, ok := c.IngredientID("egg")
	if !ok || id != 3 {
		t.Fatalf("IngredientID(egg) = %d, %v; want 3, true", id, ok)
	}
	id, ok = c.IngredientID("Eggs")
	if !ok || id != 3 {
		t.Fatalf("IngredientID(Eggs) = %d, %v; want 3, true", id, ok)
	}
}

func TestCacheMissAndStats(t *testing.T) {
	c := NewCache()
	c.CacheIngredients([]Ingredient{{ID: 1, DefaultName: "flour"}})

	if _, ok := c.IngredientID("flour"); !ok {
		t.Fatal("expected hit")
	}
	if _, ok := c.IngredientID("butter"); ok {
		t.Fatal("expected miss")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestCacheOccurrenceMarking(t *testing.T) {
	c := NewCache()

	key := OccurrenceKey("1 cup Flour", 5)
	if c.OccurrenceSeen(key) {
		t.Fatal("fresh key should not be seen")
	}
	c.MarkOccurrence(key)
	if !c.OccurrenceSeen(key) {
		t.Fatal("marked key should be seen")
	}

	// 鍵不分大小寫
	if !c.OccurrenceSeen(OccurrenceKey("1 CUP FLOUR", 5)) {
		t.Fatal("occurrence key should be case-insensitive")
	}
	// 不同食材 ID 是不同的鍵
	if c.OccurrenceSeen(OccurrenceKey("1 cup Flour", 6)) {
		t.Fatal("different ingredient id should be a different key")
	}
}

func TestCachePreloadFromDatabase(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&Ingredient{DefaultName: "Sugar"}).Error; err != nil {
		t.Fatal(err)
	}

	c := NewCache()
	if err := c.Preload(db); err != nil {
		t.Fatal(err)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
	if _, ok := c.IngredientID("sugar"); !ok {
		t.Fatal("preloaded ingredient not found")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Fatal("clear should empty the cache")
	}
}
