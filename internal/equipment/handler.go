package equipment

import (
	"errors"
	"net/http"
	"strconv"

	"labstock/internal/lifecycle"
	"labstock/internal/repository"
	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"
	"labstock/pkg/roles"
	"labstock/pkg/security"

	"github.com/gin-gonic/gin"
)

type EquipmentHandler struct {
	Repository *repository.EquipmentRepository
	Ledger     *repository.LedgerRepository
	Engine     *lifecycle.Engine
}

func NewHandler(r *repository.EquipmentRepository, l *repository.LedgerRepository, e *lifecycle.Engine) *EquipmentHandler {
	return &EquipmentHandler{
		Repository: r,
		Ledger:     l,
		Engine:     e,
	}
}

func (h *EquipmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/equipment", security.Authorize(roles.CapCreate), h.CreateEquipment)
	router.GET("/equipment", security.Authorize(roles.CapRead), h.ListEquipment)
	router.GET("/equipment/categories", security.Authorize(roles.CapRead), h.GetCategories)
	router.GET("/equipment/tag/:tag", security.Authorize(roles.CapRead), h.GetEquipmentByTag)
	router.GET("/equipment/:id", security.Authorize(roles.CapRead), h.GetEquipment)
	router.PUT("/equipment/:id", security.Authorize(roles.CapUpdate), h.UpdateEquipment)
	router.DELETE("/equipment/:id", security.Authorize(roles.CapDelete), h.DeleteEquipment)

	router.POST("/equipment/:id/assign", security.Authorize(roles.CapUpdate), h.AssignEquipment)
	router.POST("/equipment/:id/unassign", security.Authorize(roles.CapUpdate), h.UnassignEquipment)
	router.POST("/equipment/:id/checkout", security.Authorize(roles.CapCheckout), h.CheckoutEquipment)
	router.POST("/equipment/:id/checkin", security.Authorize(roles.CapCheckin), h.CheckinEquipment)
	router.POST("/equipment/:id/move", security.Authorize(roles.CapUpdate), h.MoveEquipment)
	router.POST("/equipment/:id/dispose", security.Authorize(roles.CapDelete), h.DisposeEquipment)

	router.GET("/equipment/:id/movements", security.Authorize(roles.CapRead), h.GetMovements)
	router.GET("/equipment/:id/audit", security.Authorize(roles.CapRead), h.GetAuditTrail)
}

func (h *EquipmentHandler) CreateEquipment(c *gin.Context) {
	var req EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if req.AssetTag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_tag is required"})
		return
	}

	draft, err := req.toDraft()
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:    lifecycle.OpCreate,
		Draft: draft,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *EquipmentHandler) ListEquipment(c *gin.Context) {
	filter := repository.ListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if assigned := c.Query("assigned"); assigned != "" {
		v := assigned == "true"
		filter.Assigned = &v
	}

	list, err := h.Repository.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to list equipment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *EquipmentHandler) GetCategories(c *gin.Context) {
	categories, err := h.Repository.Categories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to list categories", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, categories)
}

func (h *EquipmentHandler) GetEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.Repository.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) GetEquipmentByTag(c *gin.Context) {
	tag := c.Param("tag")
	if tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Asset tag is required"})
		return
	}

	item, err := h.Repository.GetByTag(tag)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) UpdateEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	draft, err := req.toDraft()
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:          lifecycle.OpUpdate,
		EquipmentID: id,
		Draft:       draft,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) DeleteEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if _, err := h.apply(c, lifecycle.TransitionRequest{
		Op:          lifecycle.OpDelete,
		EquipmentID: id,
	}); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Equipment deleted"})
}

func (h *EquipmentHandler) AssignEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		UserID int     `json:"user_id" binding:"required"`
		Notes  *string `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:           lifecycle.OpAssign,
		EquipmentID:  id,
		TargetUserID: &req.UserID,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) UnassignEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:          lifecycle.OpUnassign,
		EquipmentID: id,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) CheckoutEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Notes *string `json:"notes,omitempty"`
	}
	_ = c.ShouldBindJSON(&req)

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:          lifecycle.OpCheckout,
		EquipmentID: id,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) CheckinEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Location *string `json:"location,omitempty"`
		Notes    *string `json:"notes,omitempty"`
	}
	_ = c.ShouldBindJSON(&req)

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:          lifecycle.OpCheckin,
		EquipmentID: id,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) MoveEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Location string  `json:"location" binding:"required"`
		Notes    *string `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:          lifecycle.OpMove,
		EquipmentID: id,
		Location:    &req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) DisposeEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Status string  `json:"status" binding:"required"`
		Notes  *string `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	item, err := h.apply(c, lifecycle.TransitionRequest{
		Op:           lifecycle.OpDispose,
		EquipmentID:  id,
		TargetStatus: req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EquipmentHandler) GetMovements(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	movements, err := h.Ledger.ListMovementsFor(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to list movements", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, movements)
}

func (h *EquipmentHandler) GetAuditTrail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	entries, err := h.Ledger.ListAuditFor(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to list audit entries", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// apply fills request provenance from the context before handing the
// transition to the engine.
func (h *EquipmentHandler) apply(c *gin.Context, req lifecycle.TransitionRequest) (*models.Equipment, error) {
	actorID, err := security.CurrentUserID(c)
	if err != nil {
		return nil, custom_error.ErrPermissionDenied
	}
	req.ActorID = actorID
	req.Elevated = security.Elevated(c)

	ip := c.ClientIP()
	userAgent := c.GetHeader("User-Agent")
	req.IPAddress = &ip
	req.UserAgent = &userAgent

	return h.Engine.Apply(req)
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return 0, false
	}
	return id, true
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validationErr *custom_error.ValidationError
	var duplicateErr *custom_error.DuplicateKeyError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validationErr.Field})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, custom_error.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Equipment not found"})
	case errors.Is(err, custom_error.ErrPreconditionFailed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, custom_error.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to perform this action"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed", "details": err.Error()})
	}
}
