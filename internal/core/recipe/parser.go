package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParsedLine 單行食材文字的解析結果
type ParsedLine struct {
	Name          string   // 食材名稱（未修剪前後空白以外不做加工）
	Amount        *float64 // 數量，解析不出時為 nil
	Unit          string   // 單位，解析不出時為空字串
	ContainerUnit string   // 容器單位（如 "1 (14.5 oz) can ..." 的 can）
}

// ParseError 所有策略都無法解析時回傳，攜帶原始文字行
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse ingredient: %s", e.Line)
}

// unitVocabulary 固定單位詞彙表
// 僅涵蓋有界的數量／單位詞彙，超出範圍交給後備策略
var unitVocabulary = []string{
	"cup", "cups", "teaspoon", "teaspoons", "tsp", "tbsp", "tablespoon", "tablespoons",
	"ounce", "ounces", "oz", "gram", "grams", "g", "kg", "pound", "pounds", "lb", "lbs",
	"can", "cans", "package", "packages", "slice", "slices", "clove", "cloves",
	"pint", "pints", "quart", "quarts", "liter", "liters", "ml", "dl",
	"tablespoon(s)", "teaspoon(s)",
}

// vulgarFractions 分數字元對應值
var vulgarFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3.0, '⅔': 2.0 / 3.0,
	'⅕': 0.2, '⅙': 1.0 / 6.0,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

const fractionGlyphs = "¼½¾⅓⅔⅕⅙⅛⅜⅝⅞"

var (
	unitSet = buildUnitSet()

	amountPattern = `(?:\d+\s+\d+\s*/\s*\d+|\d+\s*/\s*\d+|\d+[` + fractionGlyphs + `]|\d+(?:[.,]\d+)?|[` + fractionGlyphs + `])`

	// 嚴格文法：數量 (容器數量 容器單位)? 單位? 名稱
	strictRe = regexp.MustCompile(`^\s*(` + amountPattern + `)\s*(?:\(\s*(\d+(?:[.,]\d+)?)\s*([A-Za-z.]+)\s*\)\s*)?(?:([A-Za-z()]+)\.?\s+)?(.+)$`)

	// 替代文法：名稱與數量以分隔符號切開，如 "flour - 2 cups"、"butter: 1 tbsp"
	altQuantityRe = regexp.MustCompile(`^(` + amountPattern + `)\s*([A-Za-z()]+)?\.?\s*`)

	// 括號數量，如 "butter (2 tbsp)"
	parenQuantityRe = regexp.MustCompile(`^(.+?)\s*\(\s*(` + amountPattern + `)\s*([A-Za-z()]+)?\.?\s*\)\s*$`)

	// 後備策略用：去除開頭的數字／分數片段
	leadingAmountRe = regexp.MustCompile(`^[\d` + fractionGlyphs + `][\d\s/.,` + fractionGlyphs + `]*\s*`)

	// 後備策略用：去除開頭的一個已知單位（容許結尾 s 與 (s) 複數記號）
	leadingUnitRe = regexp.MustCompile(`(?i)^(?:` + strings.Join(unitAlternatives(), "|") + `)s?\s+`)

	digitRe = regexp.MustCompile(`[\d` + fractionGlyphs + `]`)
)

func buildUnitSet() map[string]struct{} {
	set := make(map[string]struct{}, len(unitVocabulary))
	for _, u := range unitVocabulary {
		set[u] = struct{}{}
	}
	return set
}

func unitAlternatives() []string {
	alts := make([]string, 0, len(unitVocabulary))
	for _, u := range unitVocabulary {
		alts = append(alts, regexp.QuoteMeta(u))
	}
	return alts
}

// ParseIngredientLine 解析一行食材文字
// 策略依序：嚴格文法、替代文法、（允許時）啟發式後備
// 任一策略的內部錯誤視為軟失敗，換下一個策略；全部失敗回傳 ParseError
func ParseIngredientLine(line string, enableFallback bool) (*ParsedLine, error) {
	if parsed := tryStrategy(parseStrict, line); parsed != nil {
		return parsed, nil
	}

	if parsed := tryStrategy(parseAlternate, line); parsed != nil {
		return parsed, nil
	}

	if enableFallback {
		if parsed := tryStrategy(parseFallback, line); parsed != nil {
			return parsed, nil
		}
	}

	return nil, &ParseError{Line: line}
}

// tryStrategy 執行策略並吸收 panic，錯誤不跨策略傳播
func tryStrategy(strategy func(string) *ParsedLine, line string) (parsed *ParsedLine) {
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
		}
	}()

	parsed = strategy(line)
	if parsed != nil && strings.TrimSpace(parsed.Name) == "" {
		return nil
	}
	return parsed
}

// parseStrict 嚴格文法：行首必須有數量
func parseStrict(line string) *ParsedLine {
	m := strictRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	amount := parseAmount(m[1])
	containerUnit := ""
	if m[3] != "" {
		containerUnit = canonicalUnit(strings.Trim(m[3], "."))
	}

	unit := ""
	name := strings.TrimSpace(m[5])
	if m[4] != "" {
		if u, ok := lookupUnit(m[4]); ok {
			unit = u
		} else {
			// 不是單位就還給名稱
			name = strings.TrimSpace(m[4] + " " + name)
		}
	}

	name = strings.TrimSpace(strings.TrimPrefix(name, "of "))
	if name == "" {
		return nil
	}
	// 「2 cups」這類只有數量與單位的行沒有名稱可取
	if unit == "" {
		if _, isUnit := lookupUnit(name); isUnit {
			return nil
		}
	}

	return &ParsedLine{Name: name, Amount: &amount, Unit: unit, ContainerUnit: containerUnit}
}

// parseAlternate 替代文法：不同的斷詞規則
// 接受「名稱 分隔符 數量」與「名稱 (數量)」以及純名稱（不含數字）的行
func parseAlternate(line string) *ParsedLine {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil
	}

	// 括號內數量："butter (2 tbsp)"
	if m := parenQuantityRe.FindStringSubmatch(s); m != nil && !containsDigit(m[1]) {
		name := strings.TrimSpace(m[1])
		if name != "" {
			amount := parseAmount(m[2])
			unit := ""
			if m[3] != "" {
				if u, ok := lookupUnit(m[3]); ok {
					unit = u
				}
			}
			return &ParsedLine{Name: name, Amount: &amount, Unit: unit}
		}
	}

	// 分隔符號切開的數量："flour - 2 cups"、"butter: 1 tbsp"、"flour, sifted"
	for _, sep := range []string{":", " - ", ","} {
		idx := strings.Index(s, sep)
		if idx <= 0 {
			continue
		}

		name := strings.TrimSpace(s[:idx])
		rest := strings.TrimSpace(s[idx+len(sep):])
		if name == "" || containsDigit(name) {
			continue
		}

		if m := altQuantityRe.FindStringSubmatch(rest); m != nil {
			amount := parseAmount(m[1])
			unit := ""
			if m[2] != "" {
				if u, ok := lookupUnit(m[2]); ok {
					unit = u
				}
			}
			return &ParsedLine{Name: name, Amount: &amount, Unit: unit}
		}

		// 剩餘片段是修飾語（"flour, sifted"），只保留名稱
		return &ParsedLine{Name: name}
	}

	// 純名稱行："salt"
	if !containsDigit(s) {
		return &ParsedLine{Name: s}
	}

	return nil
}

// parseFallback 啟發式後備：去掉開頭數量與一個已知單位，餘下當名稱
// 數量與單位不回填，只求名稱
func parseFallback(line string) *ParsedLine {
	cleaned := strings.TrimSpace(line)
	cleaned = leadingAmountRe.ReplaceAllString(cleaned, "")
	cleaned = leadingUnitRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil
	}

	return &ParsedLine{Name: cleaned}
}

// parseAmount 解析數量片段：整數、小數、普通分數、帶分數、分數字元
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)

	// 帶分數 "1 1/2"
	if parts := strings.Fields(s); len(parts) == 2 && strings.Contains(parts[1], "/") {
		whole := parseAmount(parts[0])
		frac := parseAmount(parts[1])
		return whole + frac
	}

	// 普通分數 "3/4"
	if strings.Contains(s, "/") {
		parts := strings.SplitN(s, "/", 2)
		num, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		den, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0
		}
		return num / den
	}

	// 結尾帶分數字元 "1½" 或單一分數字元 "½"
	runes := []rune(s)
	if len(runes) > 0 {
		if frac, ok := vulgarFractions[runes[len(runes)-1]]; ok {
			whole := 0.0
			if len(runes) > 1 {
				whole = parseAmount(string(runes[:len(runes)-1]))
			}
			return whole + frac
		}
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// lookupUnit 檢查 token 是否在單位詞彙表內，回傳標準化後的單位
func lookupUnit(token string) (string, bool) {
	t := strings.ToLower(strings.Trim(token, "."))
	if _, ok := unitSet[t]; ok {
		return canonicalUnit(t), true
	}
	return "", false
}

// canonicalUnit 去除複數記號，對齊詞彙表中的單數形
func canonicalUnit(u string) string {
	u = strings.ToLower(u)
	u = strings.TrimSuffix(u, "(s)")
	if stem := strings.TrimSuffix(u, "s"); stem != u {
		if _, ok := unitSet[stem]; ok {
			return stem
		}
	}
	return u
}

func containsDigit(s string) bool {
	return digitRe.MatchString(s)
}

// ExtractName 取出修剪後的名稱
func ExtractName(parsed *ParsedLine) string {
	if parsed == nil {
		return ""
	}
	return strings.TrimSpace(parsed.Name)
}

// ExtractQuantity 組出數量描述：數量與單位依序以一個空白連接，缺漏者省略
func ExtractQuantity(parsed *ParsedLine) string {
	if parsed == nil {
		return ""
	}

	parts := make([]string, 0, 2)
	if parsed.Amount != nil {
		parts = append(parts, formatAmount(*parsed.Amount))
	}
	if parsed.Unit != "" {
		parts = append(parts, parsed.Unit)
	}
	return strings.Join(parts, " ")
}

// ExtractAmount 取出數值數量
func ExtractAmount(parsed *ParsedLine) *float64 {
	if parsed == nil {
		return nil
	}
	return parsed.Amount
}

// ExtractUnit 取出單位：主單位缺漏時退回容器單位，再缺漏時回哨兵值
func ExtractUnit(parsed *ParsedLine) string {
	if parsed == nil {
		return DefaultUnit
	}
	if parsed.Unit != "" {
		return parsed.Unit
	}
	if parsed.ContainerUnit != "" {
		return parsed.ContainerUnit
	}
	return DefaultUnit
}

// formatAmount 數量格式化成最短表示（1.5 而非 1.50）
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
