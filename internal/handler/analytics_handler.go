package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SergeiKhy/shortlinks/internal/middleware"
	"github.com/SergeiKhy/shortlinks/internal/repository"
	"github.com/SergeiKhy/shortlinks/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  *zap.Logger
}

func NewAnalyticsHandler(service service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger,
	}
}

// GetAnalytics godoc
// @Summary Aggregated click statistics for a link
// @Tags analytics
// @Produce json
// @Param id path int true "Link ID"
// @Param range query string false "Time window: 1d, 7d or 30d"
// @Success 200 {object} models.AnalyticsReport
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/analytics/{id} [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	linkID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Link ID must be an integer",
		})
		return
	}

	report, err := h.service.Report(c.Request.Context(), userID, linkID, c.Query("range"))
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "link_not_found",
				Message: "Link not found",
			})
			return
		}
		h.logger.Error("Failed to build analytics report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to build analytics report",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
