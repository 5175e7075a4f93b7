package recipe

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB 建立每個測試專屬的記憶體資料庫
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(&Recipe{}, &Ingredient{}, &RecipeIngredient{}, &RecipeRecipeIngredient{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

// seedRecipe 建立食譜與其食材、出現記錄、關聯
// 同名食材重複使用既有的列
func seedRecipe(t *testing.T, db *gorm.DB, title string, ingredients []seedIngredient) *Recipe {
	t.Helper()

	rec := &Recipe{DefaultTitle: title}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("seed recipe %q: %v", title, err)
	}

	for _, si := range ingredients {
		var ing Ingredient
		err := db.Where("default_name = ?", si.name).First(&ing).Error
		if err == gorm.ErrRecordNotFound {
			ing = Ingredient{DefaultName: si.name}
			if err := db.Create(&ing).Error; err != nil {
				t.Fatalf("seed ingredient %q: %v", si.name, err)
			}
		} else if err != nil {
			t.Fatalf("lookup ingredient %q: %v", si.name, err)
		}

		unit := si.unit
		if unit == "" {
			unit = DefaultUnit
		}
		occ := RecipeIngredient{
			DefaultName:   fmt.Sprintf("%s for %s", si.name, title),
			QuantityValue: si.quantity,
			Unit:          unit,
			IngredientID:  ing.ID,
		}
		if err := db.Create(&occ).Error; err != nil {
			t.Fatalf("seed occurrence: %v", err)
		}

		link := RecipeRecipeIngredient{RecipeID: rec.ID, RecipeIngredientID: occ.ID}
		if err := db.Create(&link).Error; err != nil {
			t.Fatalf("seed link: %v", err)
		}
	}

	return rec
}

type seedIngredient struct {
	name     string
	quantity *float64
	unit     string
}

func floatPtr(v float64) *float64 {
	return &v
}

// ingredientID 依名稱查食材 ID
func ingredientID(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	var ing Ingredient
	if err := db.Where("default_name = ?", name).First(&ing).Error; err != nil {
		t.Fatalf("ingredient %q not found: %v", name, err)
	}
	return ing.ID
}
