package recipe

import (
	"net/http"
	"strconv"

	recipeService "recipe-normalizer/internal/core/recipe"
	"recipe-normalizer/internal/infrastructure/config"
	"recipe-normalizer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IngredientHandler 食材處理程序
type IngredientHandler struct {
	cfg       *config.Config
	service   *recipeService.IngredientService
	sanitizer *recipeService.FilterSanitizer
}

// NewIngredientHandler 創建新的食材處理程序
func NewIngredientHandler(cfg *config.Config, service *recipeService.IngredientService) *IngredientHandler {
	return &IngredientHandler{
		cfg:       cfg,
		service:   service,
		sanitizer: recipeService.NewFilterSanitizer(cfg),
	}
}

// HandleList 以查詢參數搜尋食材
func (h *IngredientHandler) HandleList(c *gin.Context) {
	reqID := requestID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))

	params := &recipeService.IngredientSearchParams{
		Name:    c.Query("name"),
		IDs:     h.sanitizer.SanitizeIDs(splitIDs(c.Query("ids"))),
		Sort:    c.Query("sort"),
		Page:    page,
		PerPage: perPage,
	}

	params = h.sanitizer.SanitizeIngredientParams(params)
	if err := h.sanitizer.ValidateIngredientParams(params); err != nil {
		common.LogWarn("食材搜尋參數驗證失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Search(c.Request.Context(), params)
	if err != nil {
		common.LogError("食材搜尋失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingredient search failed"})
		return
	}

	common.LogInfo("食材搜尋成功",
		zap.String("request_id", reqID),
		zap.Int("count", result.Count),
	)
	c.JSON(http.StatusOK, result)
}
