// Package handler exposes the sandbox service over HTTP using Gin.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/audit"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/service"
	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

const maxPageSize = 100

// Handler serves the AgentWallet routes the SDK depends on.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New creates a Handler.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterPublic registers routes that need no credentials.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
}

// Register registers the authenticated routes. rg must already carry
// auth.RequireOrg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	agents := rg.Group("/agents")
	{
		agents.POST("", h.CreateAgent)
		agents.GET("", h.ListAgents)
		agents.GET("/:id", h.GetAgent)
		agents.PATCH("/:id", h.UpdateAgent)
	}

	jobs := rg.Group("/acp/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.POST("/:id/negotiate", h.Negotiate)
		jobs.POST("/:id/fund", h.Fund)
		jobs.POST("/:id/deliver", h.Deliver)
		jobs.POST("/:id/evaluate", h.Evaluate)
		jobs.POST("/:id/memos", h.SendMemo)
		jobs.GET("/:id/memos", h.ListMemos)
	}

	rg.POST("/acp/offerings", h.CreateOffering)
	rg.GET("/acp/offerings", h.ListOfferings)

	rg.GET("/compliance/audit-log", h.AuditLog)
}

// writeError maps service errors to HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbiddenRole):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
}

// org returns the caller's org; RequireOrg guarantees it is present.
func org(c *gin.Context) uuid.UUID {
	id, _ := auth.OrgFromCtx(c)
	return id
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found: invalid id " + strconv.Quote(c.Param("id"))})
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses a required UUID query parameter.
func queryID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		badRequest(c, name+" query parameter is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// optionalQueryID parses an optional UUID query parameter.
func optionalQueryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, name+" must be a UUID")
		return nil, false
	}
	return &id, true
}

// pagination reads limit and offset, applying defaultLimit and capping at
// maxPageSize.
func pagination(c *gin.Context, defaultLimit int) (limit, offset int, ok bool) {
	limit, offset = defaultLimit, 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// ── Auth ─────────────────────────────────────────────────────────────────────

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ── Agents ───────────────────────────────────────────────────────────────────

// CreateAgent handles POST /agents.
func (h *Handler) CreateAgent(c *gin.Context) {
	var in service.CreateAgentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.svc.CreateAgent(c.Request.Context(), org(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListAgents handles GET /agents.
func (h *Handler) ListAgents(c *gin.Context) {
	limit, offset, ok := pagination(c, 50)
	if !ok {
		return
	}
	agents, total, err := h.svc.ListAgents(c.Request.Context(), org(c), c.Query("status"), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": agents, "total": total})
}

// GetAgent handles GET /agents/:id.
func (h *Handler) GetAgent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.svc.GetAgent(c.Request.Context(), org(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// UpdateAgent handles PATCH /agents/:id.
func (h *Handler) UpdateAgent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var p service.AgentPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.svc.UpdateAgent(c.Request.Context(), org(c), id, p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ── ACP jobs ─────────────────────────────────────────────────────────────────

// CreateJob handles POST /acp/jobs.
func (h *Handler) CreateJob(c *gin.Context) {
	var in service.CreateJobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	job, err := h.svc.CreateJob(c.Request.Context(), org(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// ListJobs handles GET /acp/jobs.
func (h *Handler) ListJobs(c *gin.Context) {
	limit, offset, ok := pagination(c, 20)
	if !ok {
		return
	}
	agentID, ok := optionalQueryID(c, "agent_id")
	if !ok {
		return
	}
	f := model.JobFilter{AgentID: agentID, Phase: acp.Phase(c.Query("phase"))}
	jobs, total, err := h.svc.ListJobs(c.Request.Context(), org(c), f, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": total})
}

// GetJob handles GET /acp/jobs/:id.
func (h *Handler) GetJob(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	job, err := h.svc.GetJob(c.Request.Context(), org(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// actor reads the job ID and the acting agent for transition t.
func actor(c *gin.Context, t acp.Transition) (jobID, agentID uuid.UUID, ok bool) {
	if jobID, ok = pathID(c); !ok {
		return
	}
	role, err := acp.RoleFor(t)
	if err != nil {
		badRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	agentID, ok = queryID(c, role.QueryParam())
	return
}

// bindOptionalJSON decodes the body into dst when one was sent.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func (h *Handler) respondTransition(c *gin.Context, t acp.Transition, job *model.Job, err error) {
	if err != nil {
		recordTransition(t, false)
		h.writeError(c, err)
		return
	}
	recordTransition(t, true)
	c.JSON(http.StatusOK, job)
}

// Negotiate handles POST /acp/jobs/:id/negotiate?seller_agent_id=.
func (h *Handler) Negotiate(c *gin.Context) {
	jobID, seller, ok := actor(c, acp.TransitionNegotiate)
	if !ok {
		return
	}
	var in service.NegotiateInput
	if !bindOptionalJSON(c, &in) {
		return
	}
	job, err := h.svc.Negotiate(c.Request.Context(), org(c), jobID, seller, in)
	h.respondTransition(c, acp.TransitionNegotiate, job, err)
}

// Fund handles POST /acp/jobs/:id/fund?buyer_agent_id=.
func (h *Handler) Fund(c *gin.Context) {
	jobID, buyer, ok := actor(c, acp.TransitionFund)
	if !ok {
		return
	}
	job, err := h.svc.Fund(c.Request.Context(), org(c), jobID, buyer)
	h.respondTransition(c, acp.TransitionFund, job, err)
}

// Deliver handles POST /acp/jobs/:id/deliver?seller_agent_id=.
func (h *Handler) Deliver(c *gin.Context) {
	jobID, seller, ok := actor(c, acp.TransitionDeliver)
	if !ok {
		return
	}
	var in service.DeliverInput
	if !bindOptionalJSON(c, &in) {
		return
	}
	job, err := h.svc.Deliver(c.Request.Context(), org(c), jobID, seller, in)
	h.respondTransition(c, acp.TransitionDeliver, job, err)
}

// Evaluate handles POST /acp/jobs/:id/evaluate?evaluator_agent_id=.
func (h *Handler) Evaluate(c *gin.Context) {
	jobID, evaluator, ok := actor(c, acp.TransitionEvaluate)
	if !ok {
		return
	}
	var in service.EvaluateInput
	if !bindOptionalJSON(c, &in) {
		return
	}
	job, err := h.svc.Evaluate(c.Request.Context(), org(c), jobID, evaluator, in)
	h.respondTransition(c, acp.TransitionEvaluate, job, err)
}

// ── Memos ────────────────────────────────────────────────────────────────────

// SendMemo handles POST /acp/jobs/:id/memos?sender_agent_id=.
func (h *Handler) SendMemo(c *gin.Context) {
	jobID, ok := pathID(c)
	if !ok {
		return
	}
	sender, ok := queryID(c, acp.RoleSender.QueryParam())
	if !ok {
		return
	}
	var in service.SendMemoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	memo, err := h.svc.SendMemo(c.Request.Context(), org(c), jobID, sender, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, memo)
}

// ListMemos handles GET /acp/jobs/:id/memos.
func (h *Handler) ListMemos(c *gin.Context) {
	jobID, ok := pathID(c)
	if !ok {
		return
	}
	memos, err := h.svc.ListMemos(c.Request.Context(), org(c), jobID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memos": memos, "total": len(memos)})
}

// ── Offerings ────────────────────────────────────────────────────────────────

// CreateOffering handles POST /acp/offerings.
func (h *Handler) CreateOffering(c *gin.Context) {
	var in service.CreateOfferingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, err := h.svc.CreateOffering(c.Request.Context(), org(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// ListOfferings handles GET /acp/offerings.
func (h *Handler) ListOfferings(c *gin.Context) {
	limit, offset, ok := pagination(c, 20)
	if !ok {
		return
	}
	agentID, ok := optionalQueryID(c, "agent_id")
	if !ok {
		return
	}
	offerings, total, err := h.svc.ListOfferings(c.Request.Context(), org(c), agentID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offerings": offerings, "total": total})
}

// ── Compliance ───────────────────────────────────────────────────────────────

// AuditLog handles GET /compliance/audit-log.
func (h *Handler) AuditLog(c *gin.Context) {
	limit, offset, ok := pagination(c, 50)
	if !ok {
		return
	}
	f := audit.Filter{
		EventType:    c.Query("event_type"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
	}
	events, total, err := h.svc.AuditLog(c.Request.Context(), org(c), f, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events, "total": total})
}
