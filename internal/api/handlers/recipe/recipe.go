package recipe

import (
	"net/http"
	"strconv"
	"strings"

	recipeService "recipe-normalizer/internal/core/recipe"
	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchRequest 進階食譜搜尋請求
type SearchRequest struct {
	Title         string                         `json:"title,omitempty"`
	IngredientIDs []uint                         `json:"ingredient_ids,omitempty"`
	Filters       []recipeService.AdvancedFilter `json:"filters,omitempty"`
	Sort          string                         `json:"sort,omitempty"`
	Page          int                            `json:"page,omitempty"`
	PerPage       int                            `json:"per_page,omitempty"`
}

// NormalizeRequest 批次正規化請求
type NormalizeRequest struct {
	Recipes []recipeService.RawRecipe `json:"recipes" binding:"required"`
}

// NormalizeResponse 批次正規化回應
type NormalizeResponse struct {
	Results   []common.Result `json:"results"`
	Processed int             `json:"processed"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

// Handler 食譜處理程序
type Handler struct {
	cfg           *config.Config
	searchService *recipeService.SearchService
	queue         *recipeService.BatchQueue
	sanitizer     *recipeService.FilterSanitizer
}

// NewHandler 創建新的食譜處理程序
func NewHandler(cfg *config.Config, searchService *recipeService.SearchService, queue *recipeService.BatchQueue) *Handler {
	return &Handler{
		cfg:           cfg,
		searchService: searchService,
		queue:         queue,
		sanitizer:     recipeService.NewFilterSanitizer(cfg),
	}
}

// requestID 取出或補上請求 ID
func requestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.New().String()
		c.Header("X-Request-ID", id)
	}
	return id
}

// HandleList 以查詢參數搜尋食譜
func (h *Handler) HandleList(c *gin.Context) {
	reqID := requestID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))

	params := &recipeService.SearchParams{
		Title:         c.Query("title"),
		IngredientIDs: h.sanitizer.SanitizeIDs(splitIDs(c.Query("ingredient_ids"))),
		Sort:          c.Query("sort"),
		Page:          page,
		PerPage:       perPage,
	}

	h.runSearch(c, reqID, params)
}

// HandleSearch 以 JSON 請求體執行進階搜尋
func (h *Handler) HandleSearch(c *gin.Context) {
	reqID := requestID(c)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	params := &recipeService.SearchParams{
		Title:         req.Title,
		IngredientIDs: req.IngredientIDs,
		Filters:       req.Filters,
		Sort:          req.Sort,
		Page:          req.Page,
		PerPage:       req.PerPage,
	}

	h.runSearch(c, reqID, params)
}

// runSearch 清洗、驗證並執行搜尋
func (h *Handler) runSearch(c *gin.Context, reqID string, params *recipeService.SearchParams) {
	params = h.sanitizer.SanitizeRecipeParams(params)
	if err := h.sanitizer.ValidateRecipeParams(params); err != nil {
		common.LogWarn("搜尋參數驗證失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), params)
	if err != nil {
		common.LogError("食譜搜尋失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recipe search failed"})
		return
	}

	common.LogInfo("食譜搜尋成功",
		zap.String("request_id", reqID),
		zap.Int("count", result.Count),
	)
	c.JSON(http.StatusOK, result)
}

// HandleGet 依 ID 取得單一食譜
func (h *Handler) HandleGet(c *gin.Context) {
	reqID := requestID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe id"})
		return
	}

	rec, err := h.searchService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		if err == recipeService.ErrRecipeNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
			return
		}
		common.LogError("食譜讀取失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recipe"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// HandleNormalize 接收原始食譜批次並排入正規化佇列
// 同步等待批次完成後回傳逐筆結果
func (h *Handler) HandleNormalize(c *gin.Context) {
	reqID := requestID(c)

	common.LogInfo("開始處理批次正規化請求",
		zap.String("request_id", reqID),
		zap.String("client_ip", c.ClientIP()),
	)

	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if len(req.Recipes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty batch"})
		return
	}
	if len(req.Recipes) > h.cfg.Normalize.BatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Batch too large",
			"max_size": h.cfg.Normalize.BatchSize,
		})
		return
	}

	resultCh, err := h.queue.Enqueue(c.Request.Context(), req.Recipes)
	if err != nil {
		if err == common.ErrQueueFull {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Queue is full"})
			return
		}
		common.LogError("批次排入佇列失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue batch"})
		return
	}

	select {
	case batchResult := <-resultCh:
		if batchResult.Error != nil {
			common.LogError("批次正規化失敗",
				zap.Error(batchResult.Error),
				zap.String("request_id", reqID),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch normalization failed"})
			return
		}

		resp := NormalizeResponse{Results: batchResult.Results, Processed: len(batchResult.Results)}
		for _, r := range batchResult.Results {
			if r.IsSuccess() {
				resp.Succeeded++
			} else {
				resp.Failed++
			}
		}

		common.LogInfo("批次正規化成功",
			zap.String("request_id", reqID),
			zap.Int("processed", resp.Processed),
			zap.Int("succeeded", resp.Succeeded),
			zap.Int("failed", resp.Failed),
		)
		c.JSON(http.StatusOK, resp)
	case <-c.Request.Context().Done():
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timeout"})
	}
}

// splitIDs 逗號分隔的 ID 參數拆成切片
func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
