package recipe

import (
	"math"
	"testing"
)

func assertAmount(t *testing.T, parsed *ParsedLine, want float64) {
	t.Helper()
	if parsed.Amount == nil {
		t.Fatalf("amount = nil, want %v", want)
	}
	if math.Abs(*parsed.Amount-want) > 1e-9 {
		t.Fatalf("amount = %v, want %v", *parsed.Amount, want)
	}
}

func TestParseStrictGrammar(t *testing.T) {
	cases := []struct {
		line   string
		name   string
		amount float64
		unit   string
	}{
		{"1 cup flour", "flour", 1, "cup"},
		{"2 cups sugar", "sugar", 2, "cup"},
		{"1 1/2 cups milk", "milk", 1.5, "cup"},
		{"3/4 teaspoon salt", "salt", 0.75, "teaspoon"},
		{"½ tsp vanilla extract", "vanilla extract", 0.5, "tsp"},
		{"1½ cups rolled oats", "rolled oats", 1.5, "cup"},
		{"2.5 kg potatoes", "potatoes", 2.5, "kg"},
		{"3 cloves garlic", "garlic", 3, "clove"},
		{"8 oz. cream cheese", "cream cheese", 8, "oz"},
	}

	for _, tc := range cases {
		parsed, err := ParseIngredientLine(tc.line, true)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.line, err)
		}
		if ExtractName(parsed) != tc.name {
			t.Errorf("parse %q: name = %q, want %q", tc.line, ExtractName(parsed), tc.name)
		}
		assertAmount(t, parsed, tc.amount)
		if parsed.Unit != tc.unit {
			t.Errorf("parse %q: unit = %q, want %q", tc.line, parsed.Unit, tc.unit)
		}
	}
}

func TestParseWithoutUnit(t *testing.T) {
	parsed, err := ParseIngredientLine("2 eggs", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "eggs" {
		t.Errorf("name = %q, want eggs", ExtractName(parsed))
	}
	assertAmount(t, parsed, 2)
	if parsed.Unit != "" {
		t.Errorf("unit = %q, want empty", parsed.Unit)
	}
	// 單位缺漏時退回哨兵值
	if ExtractUnit(parsed) != DefaultUnit {
		t.Errorf("ExtractUnit = %q, want %q", ExtractUnit(parsed), DefaultUnit)
	}
}

func TestParseNonUnitTokenStaysInName(t *testing.T) {
	parsed, err := ParseIngredientLine("2 large eggs", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "large eggs" {
		t.Errorf("name = %q, want %q", ExtractName(parsed), "large eggs")
	}
}

func TestParseContainerUnit(t *testing.T) {
	parsed, err := ParseIngredientLine("1 (14.5 oz) can diced tomatoes", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "diced tomatoes" {
		t.Errorf("name = %q, want %q", ExtractName(parsed), "diced tomatoes")
	}
	assertAmount(t, parsed, 1)
	if parsed.Unit != "can" {
		t.Errorf("unit = %q, want can", parsed.Unit)
	}
	if parsed.ContainerUnit != "oz" {
		t.Errorf("container unit = %q, want oz", parsed.ContainerUnit)
	}
}

func TestParseAlternateGrammar(t *testing.T) {
	// 純名稱行
	parsed, err := ParseIngredientLine("salt", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "salt" {
		t.Errorf("name = %q, want salt", ExtractName(parsed))
	}
	if parsed.Amount != nil {
		t.Errorf("amount = %v, want nil", *parsed.Amount)
	}

	// 名稱與數量以分隔符切開
	parsed, err = ParseIngredientLine("flour - 2 cups", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "flour" {
		t.Errorf("name = %q, want flour", ExtractName(parsed))
	}
	assertAmount(t, parsed, 2)
	if parsed.Unit != "cup" {
		t.Errorf("unit = %q, want cup", parsed.Unit)
	}

	// 括號內數量
	parsed, err = ParseIngredientLine("butter (2 tbsp)", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "butter" {
		t.Errorf("name = %q, want butter", ExtractName(parsed))
	}
	assertAmount(t, parsed, 2)
	if parsed.Unit != "tbsp" {
		t.Errorf("unit = %q, want tbsp", parsed.Unit)
	}

	// 修飾語只保留名稱
	parsed, err = ParseIngredientLine("flour, sifted", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "flour" {
		t.Errorf("name = %q, want flour", ExtractName(parsed))
	}
}

func TestParseFallbackHeuristic(t *testing.T) {
	// 前兩個策略都失敗，後備策略只取名稱
	parsed, err := ParseIngredientLine("egg yolk from 2 eggs", true)
	if err != nil {
		t.Fatal(err)
	}
	if ExtractName(parsed) != "egg yolk from 2 eggs" {
		t.Errorf("name = %q", ExtractName(parsed))
	}
	if parsed.Amount != nil {
		t.Errorf("amount should be nil, got %v", *parsed.Amount)
	}

	// 後備停用時回報解析錯誤
	if _, err := ParseIngredientLine("egg yolk from 2 eggs", false); err == nil {
		t.Error("expected error with fallback disabled")
	}
}

func TestParseTotalFailure(t *testing.T) {
	for _, line := range []string{"", "   ", "½"} {
		_, err := ParseIngredientLine(line, true)
		if err == nil {
			t.Errorf("parse %q: expected error", line)
			continue
		}
		parseErr, ok := err.(*ParseError)
		if !ok {
			t.Errorf("parse %q: error type %T, want *ParseError", line, err)
			continue
		}
		if parseErr.Line != line {
			t.Errorf("parse %q: error carries line %q", line, parseErr.Line)
		}
	}
}

func TestExtractQuantity(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"1 cup flour", "1 cup"},
		{"1 1/2 cups milk", "1.5 cup"},
		{"2 eggs", "2"},
		{"salt", ""},
	}

	for _, tc := range cases {
		parsed, err := ParseIngredientLine(tc.line, true)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.line, err)
		}
		if got := ExtractQuantity(parsed); got != tc.want {
			t.Errorf("ExtractQuantity(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestCanonicalUnitPlural(t *testing.T) {
	cases := map[string]string{
		"cups":        "cup",
		"lbs":         "lb",
		"grams":       "gram",
		"oz":          "oz",
		"teaspoon(s)": "teaspoon",
		"tablespoons": "tablespoon",
	}
	for in, want := range cases {
		if got := canonicalUnit(in); got != want {
			t.Errorf("canonicalUnit(%q) = %q, want %q", in, got, want)
		}
	}
}
