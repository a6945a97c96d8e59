package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickcart/order-supervisor/internal/api/dto"
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// GetSettings handles GET /api/v1/settings.
// Returns the merged configuration view the next run would use. Edits
// never touch a run that is already live.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	cfg, err := h.config.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load settings", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	products := make([]dto.ProductDTO, len(cfg.Products))
	for i, p := range cfg.Products {
		products[i] = dto.ProductDTO{URL: p.URL, Quantity: p.Quantity}
	}

	c.JSON(http.StatusOK, dto.SettingsResponse{
		Identity: cfg.Identity,
		Products: products,
		Location: dto.LocationDTO{
			Latitude:       cfg.Location.Latitude,
			Longitude:      cfg.Location.Longitude,
			SelectLocation: cfg.Location.SelectionEnabled,
			SearchInput:    cfg.Location.SearchQuery,
			LocationText:   cfg.Location.TargetLabel,
		},
		Run: domain.RunParams{
			TotalUnits:     cfg.TotalUnits,
			MaxParallelism: cfg.MaxParallelism,
			RetryOnce:      cfg.RetryOnce,
			FallbackMode:   cfg.FallbackMode,
		},
	})
}

// UpdateSettings handles PUT /api/v1/settings/:group.
// Each group saves in its own transaction: a failure in one group
// never rolls back another.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	group := c.Param("group")

	var err error
	switch group {
	case "identity":
		var req dto.IdentityRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity payload"})
			return
		}
		err = h.config.SaveIdentity(c.Request.Context(), domain.Identity{
			Name:        req.Name,
			HouseFlatNo: req.HouseFlatNo,
			Landmark:    req.Landmark,
		})

	case "products":
		var req dto.ProductsRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid products payload"})
			return
		}
		products := make([]domain.Product, len(req.Products))
		for i, p := range req.Products {
			products[i] = domain.Product{URL: p.URL, Quantity: p.Quantity}
		}
		err = h.config.SaveProducts(c.Request.Context(), products)

	case "location":
		var req dto.LocationDTO
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location payload"})
			return
		}
		err = h.config.SaveLocation(c.Request.Context(), domain.Location{
			Latitude:         req.Latitude,
			Longitude:        req.Longitude,
			SelectionEnabled: req.SelectLocation,
			SearchQuery:      req.SearchInput,
			TargetLabel:      req.LocationText,
		})

	case "run":
		var req dto.RunParamsRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run settings payload"})
			return
		}
		mode := domain.FallbackSequential
		if req.OrderAll {
			mode = domain.FallbackAll
		}
		err = h.config.SaveRunParams(c.Request.Context(), domain.RunParams{
			TotalUnits:     req.TotalOrders,
			MaxParallelism: req.MaxParallelWindows,
			RetryOnce:      req.RetryOrders,
			FallbackMode:   mode,
		})

	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown settings group: " + group})
		return
	}

	if err != nil {
		h.logger.Error("failed to save settings",
			slog.String("group", group),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "group": group})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "group": group})
}
