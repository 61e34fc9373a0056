package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sessionmgr/internal/constants"
	"sessionmgr/internal/logger"
	"sessionmgr/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		sessionRules := v1.Group("/rules/session")
		{
			sessionRules.GET("", h.ListRules)
			sessionRules.POST("", h.CreateRule)
			sessionRules.GET("/:id", h.GetRule)
			sessionRules.PUT("/:id", h.UpdateRule)
			sessionRules.DELETE("/:id", h.DeleteRule)
			sessionRules.GET("/:id/versions", h.GetRuleVersions)
			sessionRules.GET("/:id/audit", h.GetRuleAuditLogs)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", h.GetAuditLogs)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// requestContext attributes the mutation to the caller. X-Changed-By is set
// by the admin gateway; absent means "system".
func requestContext(c *gin.Context) *gin.Context {
	if changedBy := c.GetHeader("X-Changed-By"); changedBy != "" {
		c.Request = c.Request.WithContext(WithChangedBy(c.Request.Context(), changedBy))
	}
	return c
}

func (h *Handler) ListRules(c *gin.Context) {
	sessionRules, err := h.service.ListSessionRules(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if sessionRules == nil {
		sessionRules = []SessionRule{}
	}
	c.JSON(http.StatusOK, sessionRules)
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateSessionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.CreateSessionRule(requestContext(c).Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) GetRule(c *gin.Context) {
	id := c.Param("id")
	rule, err := h.service.GetSessionRule(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	id := c.Param("id")
	var req UpdateSessionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.UpdateSessionRule(requestContext(c).Request.Context(), id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteSessionRule(requestContext(c).Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetRuleVersions(c *gin.Context) {
	id := c.Param("id")
	versions, err := h.service.GetRuleVersions(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if versions == nil {
		versions = []RuleVersion{}
	}
	c.JSON(http.StatusOK, versions)
}

func (h *Handler) GetRuleAuditLogs(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	logs, err := h.service.GetAuditLogs(c.Request.Context(), &id, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if logs == nil {
		logs = []AuditLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) GetAuditLogs(c *gin.Context) {
	ruleID := c.Query("rule_id")
	limit := parseLimit(c.Query("limit"))

	var ruleIDPtr *string
	if ruleID != "" {
		ruleIDPtr = &ruleID
	}

	logs, err := h.service.GetAuditLogs(c.Request.Context(), ruleIDPtr, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if logs == nil {
		logs = []AuditLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}
