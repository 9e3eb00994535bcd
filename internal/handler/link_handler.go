package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SergeiKhy/shortlinks/internal/middleware"
	"github.com/SergeiKhy/shortlinks/internal/models"
	"github.com/SergeiKhy/shortlinks/internal/repository"
	"github.com/SergeiKhy/shortlinks/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service   service.LinkService
	processor service.ClickProcessor
	baseURL   string
	logger    *zap.Logger
}

func NewLinkHandler(service service.LinkService, processor service.ClickProcessor, baseURL string, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service:   service,
		processor: processor,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

type CreateLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

type LinkResponse struct {
	ID          int64  `json:"id"`
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
	Clicks      int64  `json:"clicks"`
	CreatedAt   string `json:"created_at"`
	ExpiresAt   string `json:"expires_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (h *LinkHandler) toResponse(link *models.Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		ShortURL:    h.baseURL + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ExpiresAt:   link.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateLink godoc
// @Summary Create a short link
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link request"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/links [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	link, err := h.service.CreateLink(c.Request.Context(), userID, req.URL)
	if err != nil {
		if errors.Is(err, service.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_url",
				Message: "URL must be absolute with http or https scheme",
			})
			return
		}
		h.logger.Error("Failed to create link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create link",
		})
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(link))
}

// ListLinks godoc
// @Summary List the caller's links
// @Tags links
// @Produce json
// @Success 200 {array} LinkResponse
// @Security BearerAuth
// @Router /api/links [get]
func (h *LinkHandler) ListLinks(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	links, err := h.service.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list links", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list links",
		})
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for i := range links {
		out = append(out, h.toResponse(&links[i]))
	}
	c.JSON(http.StatusOK, out)
}

// DeleteLink godoc
// @Summary Delete one of the caller's links
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/links/{id} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context) {
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

	if err := h.service.DeleteLink(c.Request.Context(), userID, linkID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "link_not_found",
				Message: "Link not found",
			})
			return
		}
		h.logger.Error("Failed to delete link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to delete link",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// Redirect godoc
// @Summary Redirect a short code to its original URL
// @Tags links
// @Param code path string true "Short code"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Router /{code} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	link, err := h.service.GetLink(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "link_not_found",
				Message: "Short link does not exist or has expired",
			})
			return
		}
		h.logger.Error("Failed to resolve short code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to resolve short link",
		})
		return
	}

	// Атрибуция клика не должна задерживать редирект.
	if err := h.processor.Enqueue(c.Request.Context(), &models.ClickEvent{
		LinkID:    link.ID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}); err != nil {
		h.logger.Debug("Failed to enqueue click event", zap.Error(err))
	}

	c.Redirect(http.StatusFound, link.OriginalURL)
}
