package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shortlink-app/shortlink/internal/models"
	"github.com/shortlink-app/shortlink/internal/repository"
	"github.com/shortlink-app/shortlink/internal/service"
	"github.com/shortlink-app/shortlink/internal/slug"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service        service.LinkService
	analytics      service.AnalyticsService
	clickProcessor service.ClickProcessor
	baseURL        string
	logger         *zap.Logger
}

func NewLinkHandler(
	linkService service.LinkService,
	analytics service.AnalyticsService,
	clickProcessor service.ClickProcessor,
	baseURL string,
	logger *zap.Logger,
) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		service:        linkService,
		analytics:      analytics,
		clickProcessor: clickProcessor,
		baseURL:        strings.TrimRight(baseURL, "/"),
		logger:         logger,
	}
}

type CreateLinkRequest struct {
	LongURL    string     `json:"long_url" binding:"required"`
	CustomSlug string     `json:"custom_slug,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type CreateLinkResponse struct {
	Slug      string     `json:"slug"`
	ShortURL  string     `json:"short_url"`
	LongURL   string     `json:"long_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateLink handles POST /api/v1/links. Validation failures come back
// with distinct error codes so the caller can render specific feedback.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input := &models.CreateLinkInput{
		LongURL:   req.LongURL,
		ExpiresAt: req.ExpiresAt,
	}
	if req.CustomSlug != "" {
		input.CustomSlug = &req.CustomSlug
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateLinkResponse{
		Slug:      link.Slug,
		ShortURL:  h.baseURL + "/" + link.Slug,
		LongURL:   link.LongURL,
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
	})
}

func (h *LinkHandler) respondCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "Destination must be an absolute http(s) URL",
		})
	case errors.Is(err, slug.ErrTooShort):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "slug_too_short",
			Message: "Custom slug must be at least 3 characters",
		})
	case errors.Is(err, slug.ErrTooLong):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "slug_too_long",
			Message: "Custom slug must be at most 50 characters",
		})
	case errors.Is(err, slug.ErrInvalidChars):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "slug_invalid_chars",
			Message: "Custom slug may only contain lowercase letters, digits, hyphens and underscores",
		})
	case errors.Is(err, slug.ErrReserved):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "slug_reserved",
			Message: "This slug is reserved, please choose another",
		})
	case errors.Is(err, repository.ErrSlugTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "slug_taken",
			Message: "This slug is already taken, please choose another",
		})
	default:
		h.logger.Error("Failed to create link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to create link",
		})
	}
}

// Redirect handles GET /:slug. The click event is scheduled before the
// response goes out; the visitor never waits on its persistence. 302
// keeps the mapping revisable by clients and caches.
func (h *LinkHandler) Redirect(c *gin.Context) {
	rawSlug := c.Param("slug")

	link, err := h.service.Resolve(c.Request.Context(), rawSlug)
	if err != nil {
		if !errors.Is(err, repository.ErrLinkNotFound) {
			h.logger.Error("Failed to resolve slug", zap.String("slug", rawSlug), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "storage_error",
				Message: "Failed to resolve link",
			})
			return
		}
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found or expired",
		})
		return
	}

	event := &models.ClickEvent{
		Slug:          link.Slug,
		Timestamp:     time.Now().UTC(),
		Referrer:      c.Request.Referer(),
		UserAgentRaw:  c.Request.UserAgent(),
		ClientAddress: c.ClientIP(),
	}
	if err := h.clickProcessor.Record(c.Request.Context(), event); err != nil {
		h.logger.Warn("Failed to schedule click event", zap.String("slug", link.Slug), zap.Error(err))
	}

	c.Redirect(http.StatusFound, link.LongURL)
}

// GetStats handles GET /api/v1/links/:slug/stats.
func (h *LinkHandler) GetStats(c *gin.Context) {
	rawSlug := c.Param("slug")

	report, err := h.analytics.Summarize(c.Request.Context(), rawSlug, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found or expired",
			})
			return
		}
		h.logger.Error("Failed to summarize clicks", zap.String("slug", rawSlug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to load stats",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
