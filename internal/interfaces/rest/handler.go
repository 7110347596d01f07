package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/urbanly/service-engine/internal/application/engine"
	"github.com/urbanly/service-engine/internal/application/service"
	"github.com/urbanly/service-engine/internal/application/sla"
	"go.uber.org/zap"
)

// Handler exposes the engine over HTTP. Authentication and authorization are
// owned by the deployment's gateway; the handlers assume an already-vetted
// caller.
type Handler struct {
	instances *service.InstanceService
	executor  *engine.Executor
	evaluator *sla.Evaluator
	logger    *zap.Logger
}

// NewHandler creates a new REST handler
func NewHandler(
	instances *service.InstanceService,
	executor *engine.Executor,
	evaluator *sla.Evaluator,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		instances: instances,
		executor:  executor,
		evaluator: evaluator,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/instances", h.createInstance)
		api.GET("/instances/:id", h.getInstance)
		api.POST("/instances/:id/transition", h.transition)
		api.GET("/instances/:id/transitions", h.validTransitions)
		api.GET("/instances/:id/sla", h.slaStatus)
		api.GET("/instances/:id/history", h.history)
		api.GET("/definitions/:code/states", h.stateList)
	}
}

type createInstanceRequest struct {
	DefinitionCode string         `json:"definition_code" binding:"required"`
	City           string         `json:"city"`
	CreatedBy      string         `json:"created_by" binding:"required"`
	Metadata       map[string]any `json:"metadata"`
}

func (h *Handler) createInstance(c *gin.Context) {
	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	instance, err := h.instances.Create(c.Request.Context(), req.DefinitionCode, req.City, req.CreatedBy, req.Metadata)
	if err != nil {
		if errors.Is(err, service.ErrDefinitionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create instance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, instance)
}

func (h *Handler) getInstance(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}

	instance, err := h.instances.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get instance", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if instance == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return
	}

	c.JSON(http.StatusOK, instance)
}

type transitionRequest struct {
	NewState  string         `json:"new_state" binding:"required"`
	ChangedBy string         `json:"changed_by" binding:"required"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata"`
}

func (h *Handler) transition(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.executor.Transition(c.Request.Context(), engine.Request{
		InstanceID: id,
		NewState:   req.NewState,
		ChangedBy:  req.ChangedBy,
		Reason:     req.Reason,
		Metadata:   req.Metadata,
	})
	if err != nil {
		h.logger.Error("Transition failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(transitionStatus(result), result)
}

// transitionStatus maps engine result codes to HTTP status codes
func transitionStatus(result *engine.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Code {
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeConcurrentMutation:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *Handler) validTransitions(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}

	states, err := h.executor.ValidTransitions(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid_transitions": states})
}

func (h *Handler) slaStatus(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}

	status, err := h.evaluator.GetStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sla.ErrInstanceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("SLA evaluation failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) history(c *gin.Context) {
	id, ok := h.instanceID(c)
	if !ok {
		return
	}

	records, err := h.instances.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get history", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}

func (h *Handler) stateList(c *gin.Context) {
	states, err := h.instances.StateList(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrDefinitionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to build state list", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"states": states})
}

func (h *Handler) instanceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instance id"})
		return 0, false
	}
	return id, true
}
