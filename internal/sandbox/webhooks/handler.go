package webhooks

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
)

// Handler handles HTTP requests for webhooks.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a new webhook Handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register registers the webhook routes. rg must already carry
// auth.RequireOrg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	wh := rg.Group("/webhooks")
	{
		wh.POST("", h.Create)
		wh.GET("", h.List)
		wh.GET("/:id", h.Get)
		wh.PATCH("/:id", h.Update)
		wh.DELETE("/:id", h.Delete)
		wh.GET("/:id/deliveries", h.Deliveries)
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("webhook request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// scope returns the caller's org and the :id path parameter.
func scope(c *gin.Context) (orgID, id uuid.UUID, ok bool) {
	orgID, _ = auth.OrgFromCtx(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, id, true
}

// Create handles POST /webhooks. The secret is in this response only.
func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	orgID, _ := auth.OrgFromCtx(c)
	w, err := h.svc.Create(c.Request.Context(), orgID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// List handles GET /webhooks.
func (h *Handler) List(c *gin.Context) {
	orgID, _ := auth.OrgFromCtx(c)
	hooks, err := h.svc.List(c.Request.Context(), orgID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hooks, "total": len(hooks)})
}

// Get handles GET /webhooks/:id.
func (h *Handler) Get(c *gin.Context) {
	orgID, id, ok := scope(c)
	if !ok {
		return
	}
	w, err := h.svc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Update handles PATCH /webhooks/:id.
func (h *Handler) Update(c *gin.Context) {
	orgID, id, ok := scope(c)
	if !ok {
		return
	}
	var p Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	w, err := h.svc.Update(c.Request.Context(), orgID, id, p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Delete handles DELETE /webhooks/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID, id, ok := scope(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), orgID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Deliveries handles GET /webhooks/:id/deliveries.
func (h *Handler) Deliveries(c *gin.Context) {
	orgID, id, ok := scope(c)
	if !ok {
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, 100)
	}
	ds, err := h.svc.Deliveries(c.Request.Context(), orgID, id, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ds, "total": len(ds)})
}
