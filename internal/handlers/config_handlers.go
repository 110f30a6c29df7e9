package handlers

import (
	"encoding/json"
	"net/http"

	"mercaplaza/internal/common"
	"mercaplaza/internal/models"
	"mercaplaza/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ConfigHandlers handles HTTP requests for platform configuration
type ConfigHandlers struct {
	configService services.ConfigServiceInterface
}

// NewConfigHandlers creates a new config handlers instance
func NewConfigHandlers(configService services.ConfigServiceInterface) *ConfigHandlers {
	return &ConfigHandlers{
		configService: configService,
	}
}

// GetCommissionRate handles GET /config/rates/commission
func (h *ConfigHandlers) GetCommissionRate(c echo.Context) error {
	return h.sendRate(c, models.ConfigKeySellerCommissionRate)
}

// GetPlatformFeeRate handles GET /config/rates/platform-fee
func (h *ConfigHandlers) GetPlatformFeeRate(c echo.Context) error {
	return h.sendRate(c, models.ConfigKeyBuyerPlatformFeeRate)
}

func (h *ConfigHandlers) sendRate(c echo.Context, key string) error {
	rate, err := h.configService.GetRate(c.Request().Context(), key)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"key":  key,
		"rate": rate,
	})
}

// ListConfig handles GET /config
func (h *ConfigHandlers) ListConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var category *string
	if cat := c.QueryParam("category"); cat != "" {
		category = &cat
	}

	configs, err := h.configService.List(ctx, category)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"configs": configs})
}

// GetConfig handles GET /config/:key
func (h *ConfigHandlers) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.Param("key")
	if key == "" {
		return common.SendValidationError(c, "key", "is required")
	}

	config, err := h.configService.Get(ctx, key)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, config)
}

type configRequest struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	Category string          `json:"category"`
}

// CreateConfig handles POST /config (admin)
func (h *ConfigHandlers) CreateConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var req configRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Key, "key"); err != nil {
		return common.SendDomainError(c, err)
	}
	if req.Category == "" {
		req.Category = models.ConfigCategoryGeneral
	}

	var actor *uuid.UUID
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		actor = &userID
	}

	config, err := h.configService.Create(ctx, req.Key, req.Value, req.Category, actor)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, config)
}

// UpdateConfig handles PUT /config/:key (admin)
func (h *ConfigHandlers) UpdateConfig(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.Param("key")
	if key == "" {
		return common.SendValidationError(c, "key", "is required")
	}

	var req struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	var actor *uuid.UUID
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		actor = &userID
	}

	config, err := h.configService.Update(ctx, key, req.Value, actor)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, config)
}

// DeleteConfig handles DELETE /config/:key (admin)
func (h *ConfigHandlers) DeleteConfig(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.Param("key")
	if key == "" {
		return common.SendValidationError(c, "key", "is required")
	}

	if err := h.configService.Delete(ctx, key); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
