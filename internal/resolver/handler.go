package resolver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sessionmgr/internal/config_handler"
	"sessionmgr/internal/logger"
	"sessionmgr/pkg/errors"
	"sessionmgr/pkg/models"
	"sessionmgr/pkg/version"
)

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/session-properties/resolve", h.Resolve)
	}
}

func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	sessionCtx, err := req.toSessionContext()
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	coordinatorVersion := h.service.CoordinatorVersion()
	if req.CoordinatorVersion != "" {
		coordinatorVersion, err = version.Parse(req.CoordinatorVersion)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
			return
		}
	}

	resp, err := h.service.Resolve(c.Request.Context(), sessionCtx, coordinatorVersion)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Resolution failed",
			"error", err,
			"user", req.User,
		)
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (r ResolveRequest) toSessionContext() (models.SessionContext, error) {
	sessionCtx := models.SessionContext{
		User:       r.User,
		Source:     r.Source,
		ClientTags: r.ClientTags,
		QueryType:  r.QueryType,
		ClientInfo: r.ClientInfo,
	}

	if len(r.ResourceGroup) > 0 {
		group, err := models.NewResourceGroupID(r.ResourceGroup...)
		if err != nil {
			return models.SessionContext{}, err
		}
		sessionCtx.ResourceGroup = group
	}

	return sessionCtx, nil
}

// NewConfigHandler routes session rule change events to a rule set reload.
func NewConfigHandler(service *Service, log logger.Logger) *config_handler.Handler {
	return config_handler.NewHandler(
		models.EventTypeSessionRuleUpdated,
		models.ServiceTypeSession,
		service,
		log,
	)
}
