package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NormalizeService 批次正規化協調器
// 一個批次在單一交易內走完三個階段：
// 建立／驗證食譜 → 解析並累積食材 → 批量落地
type NormalizeService struct {
	db        *gorm.DB
	cfg       *config.Config
	runLogger *NormalizeLogger
}

// NewNormalizeService 建立正規化服務
func NewNormalizeService(db *gorm.DB, cfg *config.Config) *NormalizeService {
	return &NormalizeService{db: db, cfg: cfg}
}

// SetRunLogger 指定本次執行的專屬日誌，可為 nil
func (s *NormalizeService) SetRunLogger(l *NormalizeLogger) {
	s.runLogger = l
}

// lineData 第三階段待落地的單行資料
type lineData struct {
	recipeID  uint
	rawLine   string
	canonical string
	quantity  string
	amount    *float64
	unit      string
}

// nameAccumulator 批次範圍的食材名稱累積器
// 鍵為正規化名稱，值為首見的原始大小寫名稱，並保留首見順序
type nameAccumulator struct {
	names map[string]string
	order []string
}

func newNameAccumulator() *nameAccumulator {
	return &nameAccumulator{names: make(map[string]string)}
}

func (a *nameAccumulator) add(canonical, original string) {
	if _, seen := a.names[canonical]; seen {
		return
	}
	a.names[canonical] = original
	a.order = append(a.order, canonical)
}

// ProcessBatch 處理一個批次，回傳與輸入同序、同長度的結果
// 個別食譜的失敗不中斷批次；未處理的錯誤回滾整個交易
func (s *NormalizeService) ProcessBatch(ctx context.Context, batch []RawRecipe) ([]common.Result, error) {
	results := make([]common.Result, len(batch))
	lookup := NewCache()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup.Preload(tx); err != nil {
			return err
		}
		if err := lookup.PreloadOccurrences(tx); err != nil {
			return err
		}

		acc := newNameAccumulator()
		var pending []lineData

		// 第一階段：逐食譜驗證、解析、建立
		for i := range batch {
			result, err := s.processRecipe(tx, &batch[i], acc, &pending)
			if err != nil {
				return err
			}
			results[i] = result
		}

		// 第二階段：批量建立缺少的食材
		if err := s.createIngredients(tx, lookup, acc); err != nil {
			return err
		}

		// 第三階段：批量建立出現記錄與關聯
		if err := s.createOccurrences(tx, lookup, pending); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch normalization aborted: %w", err)
	}

	s.logSummary(results, lookup)
	return results, nil
}

// processRecipe 第一階段的單一食譜處理
// 回傳的 error 只用於必須回滾整批的意外狀況
func (s *NormalizeService) processRecipe(tx *gorm.DB, raw *RawRecipe, acc *nameAccumulator, pending *[]lineData) (common.Result, error) {
	if !raw.Valid() {
		return common.Failed("缺少標題或食材清單", common.StatusInvalidRecipe), nil
	}

	title := strings.TrimSpace(raw.Title)

	// 冪等跳過：同標題食譜已存在且已有食材關聯
	var existing Recipe
	err := tx.Where("default_title = ?", title).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return common.Result{}, err
	}
	if existing.ID != 0 {
		var linkCount int64
		if err := tx.Model(&RecipeRecipeIngredient{}).Where("recipe_id = ?", existing.ID).Count(&linkCount).Error; err != nil {
			return common.Result{}, err
		}
		if linkCount > 0 {
			s.runLogger.Info("食譜已存在，跳過", zap.String("title", title))
			return common.Success(existing), nil
		}
	}

	// 逐行解析：個別失敗容忍，全部失敗拒絕
	type parsedEntry struct {
		rawLine string
		parsed  *ParsedLine
	}
	var entries []parsedEntry
	for _, line := range raw.Ingredients {
		parsed, parseErr := ParseIngredientLine(line, s.cfg.Normalize.EnableFallback)
		if parseErr != nil {
			s.runLogger.Warn("食材行解析失敗",
				zap.String("title", title),
				zap.String("line", line),
			)
			continue
		}
		entries = append(entries, parsedEntry{rawLine: line, parsed: parsed})
	}
	if len(entries) == 0 {
		return common.Failed("所有食材行解析失敗", common.StatusInvalidRecipe), nil
	}

	// 建立食譜（既存但無關聯時沿用舊列）
	rec := existing
	if rec.ID == 0 {
		rec = Recipe{
			DefaultTitle: title,
			PrepTime:     SanitizeTime(raw.PrepTime),
			CookTime:     SanitizeTime(raw.CookTime),
			Rating:       SanitizeRating(raw.Ratings),
			Author:       strings.TrimSpace(raw.Author),
			Image:        strings.TrimSpace(raw.Image),
		}
		if createErr := tx.Create(&rec).Error; createErr != nil {
			// 約束衝突視為本食譜的失敗，不中斷批次
			s.runLogger.Warn("食譜建立失敗",
				zap.String("title", title),
				zap.Error(createErr),
			)
			return common.Failed("食譜建立失敗", common.StatusDatabaseError), nil
		}
	}

	// 累積名稱並排入第三階段
	for _, e := range entries {
		name := ExtractName(e.parsed)
		canonical := CanonicalName(name)
		acc.add(canonical, name)
		*pending = append(*pending, lineData{
			recipeID:  rec.ID,
			rawLine:   strings.TrimSpace(e.rawLine),
			canonical: canonical,
			quantity:  ExtractQuantity(e.parsed),
			amount:    ExtractAmount(e.parsed),
			unit:      ExtractUnit(e.parsed),
		})
	}

	return common.Success(rec), nil
}

// createIngredients 第二階段：去重後批量插入缺少的食材
// 唯一約束衝突視為良性競態；無論插入結果為何都回灌快取
func (s *NormalizeService) createIngredients(tx *gorm.DB, lookup *Cache, acc *nameAccumulator) error {
	var rows []Ingredient
	var lowered []string
	for _, canonical := range acc.order {
		lowered = append(lowered, strings.ToLower(acc.names[canonical]))
		if _, ok := lookup.IngredientID(canonical); ok {
			continue
		}
		rows = append(rows, Ingredient{DefaultName: acc.names[canonical]})
	}

	if len(rows) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			s.runLogger.Warn("食材批量插入回報錯誤，視為競態", zap.Error(err))
		}
	}

	if len(lowered) == 0 {
		return nil
	}

	var inserted []Ingredient
	if err := tx.Where("LOWER(default_name) IN ?", lowered).Find(&inserted).Error; err != nil {
		return fmt.Errorf("failed to refresh ingredient cache: %w", err)
	}
	lookup.CacheIngredients(inserted)
	return nil
}

// createOccurrences 第三階段：批量建立出現記錄並補上食譜關聯
func (s *NormalizeService) createOccurrences(tx *gorm.DB, lookup *Cache, pending []lineData) error {
	type linkIntent struct {
		recipeID uint
		rawKey   string
	}

	var occRows []RecipeIngredient
	var intents []linkIntent
	for _, ld := range pending {
		id, ok := lookup.IngredientID(ld.canonical)
		if !ok {
			// 合約違反：名稱在第二階段後必定在快取中
			s.runLogger.Critical("食材快取缺失，跳過出現記錄",
				zap.String("name", ld.canonical),
				zap.String("line", ld.rawLine),
			)
			continue
		}

		key := OccurrenceKey(ld.rawLine, id)
		if !lookup.OccurrenceSeen(key) {
			occRows = append(occRows, RecipeIngredient{
				DefaultName:     ld.rawLine,
				DefaultQuantity: ld.quantity,
				QuantityValue:   ld.amount,
				Unit:            ld.unit,
				IngredientID:    id,
			})
			lookup.MarkOccurrence(key)
		}

		intents = append(intents, linkIntent{
			recipeID: ld.recipeID,
			rawKey:   strings.ToLower(strings.TrimSpace(ld.rawLine)),
		})
	}

	if len(occRows) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&occRows).Error; err != nil {
			s.runLogger.Warn("出現記錄批量插入回報錯誤，視為競態", zap.Error(err))
		}
	}

	if len(intents) == 0 {
		return nil
	}

	// 以原始文字回查出現記錄 ID
	rawKeys := make([]string, 0, len(intents))
	seenKey := make(map[string]struct{}, len(intents))
	for _, in := range intents {
		if _, dup := seenKey[in.rawKey]; dup {
			continue
		}
		seenKey[in.rawKey] = struct{}{}
		rawKeys = append(rawKeys, in.rawKey)
	}

	var resolved []RecipeIngredient
	if err := tx.Where("LOWER(default_name) IN ?", rawKeys).Find(&resolved).Error; err != nil {
		return fmt.Errorf("failed to resolve occurrence ids: %w", err)
	}
	occIDs := make(map[string]uint, len(resolved))
	for _, occ := range resolved {
		occIDs[strings.ToLower(occ.DefaultName)] = occ.ID
	}

	// 組出去重後的關聯列
	var links []RecipeRecipeIngredient
	seenLink := make(map[string]struct{}, len(intents))
	for _, in := range intents {
		occID, ok := occIDs[in.rawKey]
		if !ok {
			s.runLogger.Critical("出現記錄回查失敗，跳過關聯",
				zap.Uint("recipe_id", in.recipeID),
				zap.String("line", in.rawKey),
			)
			continue
		}
		pairKey := fmt.Sprintf("%d_%d", in.recipeID, occID)
		if _, dup := seenLink[pairKey]; dup {
			continue
		}
		seenLink[pairKey] = struct{}{}
		links = append(links, RecipeRecipeIngredient{
			RecipeID:           in.recipeID,
			RecipeIngredientID: occID,
		})
	}

	if len(links) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			s.runLogger.Warn("關聯批量插入回報錯誤，視為競態", zap.Error(err))
		}
	}

	return nil
}

// logSummary 記錄批次統計
func (s *NormalizeService) logSummary(results []common.Result, lookup *Cache) {
	var succeeded, failed int
	for _, r := range results {
		if r.IsSuccess() {
			succeeded++
		} else {
			failed++
		}
	}

	hits, misses := lookup.Stats()
	s.runLogger.Summary(len(results), succeeded, 0, failed)
	common.LogInfo("批次正規化完成",
		zap.Int("processed", len(results)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int64("cache_hits", hits),
		zap.Int64("cache_misses", misses),
	)
}
